// Package modelgorm opens GORM connections and loads entities through them
package modelgorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/spiral/models"
	"github.com/spiral/models/modelsql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// SupportedDrivers returns the list of supported database drivers
func SupportedDrivers() []string {
	return []string{"postgres", "postgresql", "mysql", "sqlite", "sqlite3", "sqlserver", "mssql"}
}

// Open connects to the database described by the configuration
func Open(config models.SourceConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
	}

	if gormOpts := config.AdapterOptions("gorm"); gormOpts != nil {
		if logLevel, ok := gormOpts["log_level"].(string); ok {
			switch logLevel {
			case "silent":
				gormConfig.Logger = logger.Default.LogMode(logger.Silent)
			case "error":
				gormConfig.Logger = logger.Default.LogMode(logger.Error)
			case "warn":
				gormConfig.Logger = logger.Default.LogMode(logger.Warn)
			case "info":
				gormConfig.Logger = logger.Default.LogMode(logger.Info)
			}
		}

		if singularTable, ok := gormOpts["singular_table"].(bool); ok {
			gormConfig.NamingStrategy = schema.NamingStrategy{
				SingularTable: singularTable,
			}
		}
	}

	var dialector gorm.Dialector
	switch strings.ToLower(config.Driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(buildPostgresDSN(config))
	case "mysql":
		dialector = mysql.Open(buildMySQLDSN(config))
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(config.Database)
	case "sqlserver", "mssql":
		dialector = sqlserver.Open(buildSQLServerDSN(config))
	default:
		return nil, models.NewError(models.ErrorTypeUnsupported, fmt.Sprintf("unsupported driver: %s", config.Driver))
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to connect to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to get underlying sql.DB", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	return db, nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindOption narrows a Find query
type FindOption func(tx *gorm.DB) *gorm.DB

// Where adds a condition, see gorm.DB.Where
func Where(query interface{}, args ...interface{}) FindOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(query, args...)
	}
}

// Order adds an ordering, see gorm.DB.Order
func Order(value interface{}) FindOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(value)
	}
}

// Limit caps the number of rows
func Limit(limit int) FindOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	}
}

// Find selects rows of a table and hydrates them in column order
func Find(ctx context.Context, db *gorm.DB, table string, factory modelsql.Factory, opts ...FindOption) ([]*models.DataEntity, error) {
	tx := db.WithContext(ctx).Table(table)
	for _, opt := range opts {
		tx = opt(tx)
	}

	rows, err := tx.Rows()
	if err != nil {
		return nil, convertGormError(err)
	}
	defer rows.Close()

	return modelsql.ScanRows(rows, factory)
}

// First selects the first matching row
func First(ctx context.Context, db *gorm.DB, table string, factory modelsql.Factory, opts ...FindOption) (*models.DataEntity, error) {
	entities, err := Find(ctx, db, table, factory, append(opts, Limit(1))...)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, convertGormError(gorm.ErrRecordNotFound)
	}
	return entities[0], nil
}

func convertGormError(err error) error {
	switch err {
	case nil:
		return nil
	case gorm.ErrRecordNotFound:
		return models.NewErrorWithCause(models.ErrorTypeNotFound, "record not found", err)
	case gorm.ErrNotImplemented, gorm.ErrUnsupportedDriver:
		return models.NewErrorWithCause(models.ErrorTypeUnsupported, "operation not supported", err)
	case gorm.ErrInvalidDB:
		return models.NewErrorWithCause(models.ErrorTypeConnection, "invalid database", err)
	}
	return modelsql.ConvertError(err)
}

// buildPostgresDSN builds a PostgreSQL DSN
func buildPostgresDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database)

	if config.SSL.Enabled {
		dsn += " sslmode=" + config.SSL.Mode
		if config.SSL.CertFile != "" {
			dsn += " sslcert=" + config.SSL.CertFile
		}
		if config.SSL.KeyFile != "" {
			dsn += " sslkey=" + config.SSL.KeyFile
		}
		if config.SSL.CAFile != "" {
			dsn += " sslrootcert=" + config.SSL.CAFile
		}
	} else {
		dsn += " sslmode=disable"
	}

	return dsn
}

// buildMySQLDSN builds a MySQL DSN
func buildMySQLDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	if config.SSL.Enabled {
		dsn += "&tls=" + config.SSL.Mode
	}

	return dsn
}

// buildSQLServerDSN builds a SQL Server DSN
func buildSQLServerDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database)
}
