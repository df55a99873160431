// Package modelbun opens Bun connections and loads entities through them
package modelbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spiral/models"
	"github.com/spiral/models/modelsql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// SupportedDrivers returns the list of supported database drivers
func SupportedDrivers() []string {
	return []string{"postgres", "postgresql", "mysql", "sqlite", "sqlite3"}
}

// Open connects to the database described by the configuration.
// Postgres goes through lib/pq unless the bun options set pg_driver to "pgdriver".
func Open(config models.SourceConfig) (*bun.DB, error) {
	bunOpts := config.AdapterOptions("bun")

	var sqlDB *sql.DB
	var err error

	switch strings.ToLower(config.Driver) {
	case "postgres", "postgresql":
		if driver, _ := bunOpts["pg_driver"].(string); driver == "pgdriver" {
			sqlDB = createPgDriverConnection(config)
		} else {
			sqlDB, err = createPostgresConnection(config)
		}
	case "mysql":
		sqlDB, err = createMySQLConnection(config)
	case "sqlite", "sqlite3":
		sqlDB, err = createSQLiteConnection(config)
	default:
		return nil, models.NewError(models.ErrorTypeUnsupported, fmt.Sprintf("unsupported driver: %s", config.Driver))
	}

	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to connect to database", err)
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

	var bunDB *bun.DB
	switch strings.ToLower(config.Driver) {
	case "postgres", "postgresql":
		bunDB = bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		bunDB = bun.NewDB(sqlDB, mysqldialect.New())
	case "sqlite", "sqlite3":
		bunDB = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	if logLevel, ok := bunOpts["log_level"].(string); ok && logLevel != "silent" {
		bunDB.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(logLevel == "debug"),
		))
	}

	return bunDB, nil
}

// FindOption narrows a Find query
type FindOption func(q *bun.SelectQuery) *bun.SelectQuery

// Where adds a condition, see bun.SelectQuery.Where
func Where(query string, args ...interface{}) FindOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(query, args...)
	}
}

// Order adds orderings such as "id DESC"
func Order(orders ...string) FindOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order(orders...)
	}
}

// Limit caps the number of rows
func Limit(n int) FindOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(n)
	}
}

// Find selects rows of a table and hydrates them in column order
func Find(ctx context.Context, db bun.IDB, table string, factory modelsql.Factory, opts ...FindOption) ([]*models.DataEntity, error) {
	query := db.NewSelect().ColumnExpr("*").Table(table)
	for _, opt := range opts {
		query = opt(query)
	}

	rows, err := query.Rows(ctx)
	if err != nil {
		return nil, convertBunError(err)
	}
	defer rows.Close()

	entities, err := modelsql.ScanRows(rows, factory)
	if err != nil {
		return nil, convertBunError(err)
	}
	return entities, nil
}

// Raw runs a raw query through the Bun hooks and hydrates every row
func Raw(ctx context.Context, db *bun.DB, factory modelsql.Factory, query string, args ...interface{}) ([]*models.DataEntity, error) {
	entities, err := modelsql.Query(ctx, db, factory, query, args...)
	if err != nil {
		return nil, convertBunError(err)
	}
	return entities, nil
}

func convertBunError(err error) error {
	if err == nil {
		return nil
	}
	var entityErr models.EntityError
	if errors.As(err, &entityErr) {
		return err
	}

	switch {
	case strings.Contains(err.Error(), "timeout"):
		return models.NewErrorWithCause(models.ErrorTypeConnection, "operation timeout", err)
	case strings.Contains(err.Error(), "connection"):
		return models.NewErrorWithCause(models.ErrorTypeConnection, "connection error", err)
	default:
		return modelsql.ConvertError(err)
	}
}

// createPostgresConnection creates a PostgreSQL connection
func createPostgresConnection(config models.SourceConfig) (*sql.DB, error) {
	if config.ConnectionURL != "" {
		return sql.Open("postgres", config.ConnectionURL)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	if config.SSL.Enabled {
		dsn = strings.Replace(dsn, "sslmode=disable", "sslmode="+config.SSL.Mode, 1)
	}

	return sql.Open("postgres", dsn)
}

// createPgDriverConnection creates a PostgreSQL connection using pgdriver
func createPgDriverConnection(config models.SourceConfig) *sql.DB {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(buildPostgresDSN(config)))
	return sql.OpenDB(connector)
}

// buildPostgresDSN builds a PostgreSQL DSN string
func buildPostgresDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	params := []string{}
	if config.SSL.Enabled {
		params = append(params, "sslmode="+config.SSL.Mode)
		if config.SSL.CertFile != "" {
			params = append(params, "sslcert="+config.SSL.CertFile)
		}
		if config.SSL.KeyFile != "" {
			params = append(params, "sslkey="+config.SSL.KeyFile)
		}
		if config.SSL.CAFile != "" {
			params = append(params, "sslrootcert="+config.SSL.CAFile)
		}
	} else {
		params = append(params, "sslmode=disable")
	}

	return dsn + "?" + strings.Join(params, "&")
}

// createMySQLConnection creates a MySQL connection
func createMySQLConnection(config models.SourceConfig) (*sql.DB, error) {
	if config.ConnectionURL != "" {
		return sql.Open("mysql", config.ConnectionURL)
	}
	return sql.Open("mysql", buildMySQLDSN(config))
}

// buildMySQLDSN formats the MySQL DSN through the driver's own config
func buildMySQLDSN(config models.SourceConfig) string {
	mysqlConfig := mysql.NewConfig()
	mysqlConfig.User = config.Username
	mysqlConfig.Passwd = config.Password
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	mysqlConfig.DBName = config.Database
	if config.SSL.Enabled {
		mysqlConfig.TLSConfig = config.SSL.Mode
	}
	return mysqlConfig.FormatDSN()
}

// createSQLiteConnection creates a SQLite connection
func createSQLiteConnection(config models.SourceConfig) (*sql.DB, error) {
	return sql.Open("sqlite3", config.Database)
}
