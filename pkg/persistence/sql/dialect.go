package sql

import (
	stderrors "errors"
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver

	"github.com/gluufederation/containerlib-go/pkg/errors"
)

// ConnParams carries the connection settings shared by every dialect.
type ConnParams struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConnParamsFromEnv assembles connection settings from the GLUU_SQL_*
// environment variables.
func ConnParamsFromEnv() ConnParams {
	return ConnParams{
		Host:     GetHost(),
		Port:     GetPort(),
		Database: GetDatabase(),
		User:     GetUser(),
		Password: GetPassword(),
	}
}

// Adapter isolates the engine-specific pieces of a SQL dialect. Client
// code never branches on the dialect; it asks the adapter.
type Adapter interface {
	// DriverName names the database/sql driver to open.
	DriverName() string

	// DSN builds the driver-specific connection string.
	DSN(params ConnParams) string

	// URL renders the connection settings as a display URL.
	URL(params ConnParams) string

	// TypeName is the engine name used in rendered properties.
	TypeName() string

	// QuoteChar is the identifier quoting character.
	QuoteChar() string

	// Placeholder returns the bind parameter for the 1-based position n.
	Placeholder(n int) string

	// VersionQuery is the statement that returns the server version.
	VersionQuery() string

	// SchemaName returns the schema holding the application tables.
	SchemaName(database string) string

	// JSONType is the reflected type name of JSON columns.
	JSONType() string

	// JSONDefault is the value empty JSON columns are populated with.
	JSONDefault() interface{}

	// ClassifyCreateTableError tags an error from CREATE TABLE as
	// recoverable (table already exists) or fatal.
	ClassifyCreateTableError(err error) errors.Class

	// ClassifyCreateIndexError tags an error from CREATE INDEX as
	// recoverable (index already exists) or fatal.
	ClassifyCreateIndexError(err error) errors.Class

	// ClassifyInsertError tags an error from INSERT as recoverable
	// (duplicate entry) or fatal.
	ClassifyInsertError(err error) errors.Class
}

// NewAdapter returns the adapter for a dialect name. PostgreSQL answers
// to both its short and long names.
func NewAdapter(dialect string) (Adapter, error) {
	switch dialect {
	case "mysql":
		return &MySQLAdapter{}, nil
	case "pgsql", "postgresql":
		return &PostgresAdapter{}, nil
	}
	return nil, errors.NewError(errors.ErrCodeUnsupportedDialect,
		fmt.Sprintf("unsupported dialect %s", dialect)).
		WithComponent("sql")
}

// MySQLAdapter implements Adapter for MySQL via go-sql-driver.
type MySQLAdapter struct{}

func (a *MySQLAdapter) DriverName() string { return "mysql" }

func (a *MySQLAdapter) DSN(params ConnParams) string {
	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", params.Host, params.Port)
	cfg.DBName = params.Database
	return cfg.FormatDSN()
}

func (a *MySQLAdapter) URL(params ConnParams) string {
	return displayURL("mysql", params)
}

func (a *MySQLAdapter) TypeName() string  { return "mysql" }
func (a *MySQLAdapter) QuoteChar() string { return "`" }

func (a *MySQLAdapter) Placeholder(int) string { return "?" }

func (a *MySQLAdapter) VersionQuery() string { return "SELECT VERSION()" }

// SchemaName returns the database itself; MySQL has no separate schema
// level.
func (a *MySQLAdapter) SchemaName(database string) string { return database }

func (a *MySQLAdapter) JSONType() string { return "json" }

func (a *MySQLAdapter) JSONDefault() interface{} {
	return map[string]interface{}{"v": []interface{}{}}
}

func (a *MySQLAdapter) ClassifyCreateTableError(err error) errors.Class {
	return classifyMySQLError(err, 1050)
}

func (a *MySQLAdapter) ClassifyCreateIndexError(err error) errors.Class {
	return classifyMySQLError(err, 1061)
}

func (a *MySQLAdapter) ClassifyInsertError(err error) errors.Class {
	return classifyMySQLError(err, 1062)
}

func classifyMySQLError(err error, recoverable uint16) errors.Class {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) && mysqlErr.Number == recoverable {
		return errors.ClassRecoverable
	}
	return errors.ClassFatal
}

// PostgresAdapter implements Adapter for PostgreSQL via the pgx stdlib
// driver.
type PostgresAdapter struct{}

func (a *PostgresAdapter) DriverName() string { return "pgx" }

func (a *PostgresAdapter) DSN(params ConnParams) string {
	return displayURL("postgres", params)
}

func (a *PostgresAdapter) URL(params ConnParams) string {
	return displayURL("postgres", params)
}

func (a *PostgresAdapter) TypeName() string  { return "postgresql" }
func (a *PostgresAdapter) QuoteChar() string { return `"` }

func (a *PostgresAdapter) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (a *PostgresAdapter) VersionQuery() string { return "SHOW server_version" }

// SchemaName honors GLUU_SQL_DB_SCHEMA and falls back to public.
func (a *PostgresAdapter) SchemaName(string) string {
	if schema := GetSchema(); schema != "" {
		return schema
	}
	return "public"
}

func (a *PostgresAdapter) JSONType() string { return "jsonb" }

func (a *PostgresAdapter) JSONDefault() interface{} {
	return []interface{}{}
}

// 42P07 covers both duplicate tables and duplicate indexes; PostgreSQL
// reports either as an existing relation.
func (a *PostgresAdapter) ClassifyCreateTableError(err error) errors.Class {
	return classifyPostgresError(err, "42P07")
}

func (a *PostgresAdapter) ClassifyCreateIndexError(err error) errors.Class {
	return classifyPostgresError(err, "42P07")
}

func (a *PostgresAdapter) ClassifyInsertError(err error) errors.Class {
	return classifyPostgresError(err, "23505")
}

func classifyPostgresError(err error, recoverable string) errors.Class {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == recoverable {
		return errors.ClassRecoverable
	}
	return errors.ClassFatal
}

func displayURL(scheme string, params ConnParams) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(params.User, params.Password),
		Host:   fmt.Sprintf("%s:%d", params.Host, params.Port),
		Path:   "/" + params.Database,
	}
	return u.String()
}
