// Package modelsql hydrates entities from database/sql result sets
package modelsql

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
	_ "modernc.org/sqlite"
)

// Factory turns a scanned row into an entity
type Factory func(row *models.Fields) (*models.DataEntity, error)

// Rows is the part of *sql.Rows used while scanning
type Rows interface {
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Querier runs queries; *sql.DB, *sql.Tx and *sql.Conn implement it
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SupportedDrivers returns the list of supported database drivers. "sqlite3" uses the cgo
// driver, "sqlite" the pure Go one.
func SupportedDrivers() []string {
	return []string{"postgres", "postgresql", "mysql", "sqlite3", "sqlite"}
}

// Open opens a database/sql pool described by the configuration
func Open(config models.SourceConfig) (*sql.DB, error) {
	var (
		driver string
		dsn    string
	)
	switch strings.ToLower(config.Driver) {
	case "postgres", "postgresql":
		driver, dsn = "postgres", postgresDSN(config)
	case "mysql":
		driver, dsn = "mysql", mysqlDSN(config)
	case "sqlite3":
		driver, dsn = "sqlite3", config.Database
	case "sqlite":
		driver, dsn = "sqlite", config.Database
	default:
		return nil, models.NewError(models.ErrorTypeUnsupported, fmt.Sprintf("unsupported driver: %s", config.Driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to connect to database", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
	return db, nil
}

func postgresDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}
	mode := "disable"
	if config.SSL.Enabled {
		mode = config.SSL.Mode
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, mode)
}

func mysqlDSN(config models.SourceConfig) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}
	mysqlConfig := mysql.NewConfig()
	mysqlConfig.User = config.Username
	mysqlConfig.Passwd = config.Password
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	mysqlConfig.DBName = config.Database
	return mysqlConfig.FormatDSN()
}

// Raw returns a factory storing rows as construction data of the schema
func Raw(schema *models.Schema) Factory {
	return func(row *models.Fields) (*models.DataEntity, error) {
		return models.NewEntity(schema, row), nil
	}
}

// Filling returns a factory passing rows through Fill, so setters and accessors apply
func Filling(schema *models.Schema, opts ...models.FillOption) Factory {
	return func(row *models.Fields) (*models.DataEntity, error) {
		entity := models.NewEntity(schema, nil)
		if err := entity.Fill(row, opts...); err != nil {
			return nil, err
		}
		return entity, nil
	}
}

// ForEntity returns a Raw factory for a declared entity
func ForEntity(registry *models.Registry, name string) (Factory, error) {
	schema, err := registry.Schema(name)
	if err != nil {
		return nil, err
	}
	return Raw(schema), nil
}

// Query runs a query and hydrates every row
func Query(ctx context.Context, db Querier, factory Factory, query string, args ...any) ([]*models.DataEntity, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertError(err)
	}
	defer rows.Close()

	return ScanRows(rows, factory)
}

// ScanRows hydrates every remaining row. Fields follow the column order; text returned as
// bytes is converted to string except for binary columns.
func ScanRows(rows Rows, factory Factory) ([]*models.DataEntity, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, ConvertError(err)
	}
	binary, err := binaryColumns(rows, len(columns))
	if err != nil {
		return nil, err
	}

	var entities []*models.DataEntity
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, models.NewErrorWithCause(models.ErrorTypeSerialization, "failed to scan row", err)
		}

		row := models.NewFields()
		for i, column := range columns {
			row.Set(column, normalize(values[i], binary[i]))
		}

		entity, err := factory(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, ConvertError(err)
	}
	return entities, nil
}

// ScanRow hydrates the first row, or returns a not found error
func ScanRow(rows Rows, factory Factory) (*models.DataEntity, error) {
	entities, err := ScanRows(rows, factory)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ConvertError(sql.ErrNoRows)
	}
	return entities[0], nil
}

// ConvertError maps database errors to entity errors
func ConvertError(err error) error {
	if err == nil {
		return nil
	}

	var entityErr models.EntityError
	if errors.As(err, &entityErr) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.NewErrorWithCause(models.ErrorTypeNotFound, "record not found", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.NewErrorWithCause(models.ErrorTypeConnection, "operation interrupted", err)
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "no such table") || strings.Contains(errStr, "does not exist") {
		return models.NewErrorWithCause(models.ErrorTypeNotFound, "table not found", err)
	}
	return models.NewErrorWithCause(models.ErrorTypeConnection, "database operation failed", err)
}

func binaryColumns(rows Rows, n int) ([]bool, error) {
	binary := make([]bool, n)
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, ConvertError(err)
	}
	if len(types) != n {
		return nil, models.NewError(models.ErrorTypeSerialization, fmt.Sprintf("expected %d column types, got %d", n, len(types)))
	}
	for i, t := range types {
		name := strings.ToUpper(t.DatabaseTypeName())
		binary[i] = strings.Contains(name, "BLOB") || strings.Contains(name, "BINARY") || name == "BYTEA"
	}
	return binary, nil
}

func normalize(value any, binary bool) any {
	if b, ok := value.([]byte); ok && !binary {
		return string(b)
	}
	return value
}
