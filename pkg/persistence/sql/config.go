package sql

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by this package, with their defaults.
const (
	DefaultDialect      = "mysql"
	DefaultHost         = "localhost"
	DefaultPort         = 3306
	DefaultDatabase     = "gluu"
	DefaultDBUser       = "gluu"
	DefaultPasswordFile = "/etc/gluu/conf/sql_password"
	DefaultTimezone     = "UTC"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// GetDialect returns the configured SQL dialect from GLUU_SQL_DB_DIALECT.
func GetDialect() string {
	return envOrDefault("GLUU_SQL_DB_DIALECT", DefaultDialect)
}

// GetHost returns the database host from GLUU_SQL_DB_HOST.
func GetHost() string {
	return envOrDefault("GLUU_SQL_DB_HOST", DefaultHost)
}

// GetPort returns the database port from GLUU_SQL_DB_PORT. Unparseable
// values fall back to the default.
func GetPort() int {
	port, err := strconv.Atoi(os.Getenv("GLUU_SQL_DB_PORT"))
	if err != nil {
		return DefaultPort
	}
	return port
}

// GetDatabase returns the database name from GLUU_SQL_DB_NAME.
func GetDatabase() string {
	return envOrDefault("GLUU_SQL_DB_NAME", DefaultDatabase)
}

// GetUser returns the database user from GLUU_SQL_DB_USER.
func GetUser() string {
	return envOrDefault("GLUU_SQL_DB_USER", DefaultDBUser)
}

// GetSchema returns the raw schema override from GLUU_SQL_DB_SCHEMA.
// Empty means the engine default applies; see Adapter.SchemaName.
func GetSchema() string {
	return os.Getenv("GLUU_SQL_DB_SCHEMA")
}

// GetTimezone returns the server time zone used in rendered properties,
// from GLUU_SQL_DB_TIMEZONE.
func GetTimezone() string {
	return envOrDefault("GLUU_SQL_DB_TIMEZONE", DefaultTimezone)
}

// GetPassword reads the database password from the file named by
// GLUU_SQL_PASSWORD_FILE. A missing or unreadable file yields an empty
// password rather than an error, matching deployments that run without
// one.
func GetPassword() string {
	raw, err := os.ReadFile(envOrDefault("GLUU_SQL_PASSWORD_FILE", DefaultPasswordFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
