package database

import (
	"fmt"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config locates the players table. Postgres reads the server fields; SQLite only
// reads Path, which is ":memory:" in tests.
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string
}

// Dialect folds driver aliases to DriverPostgres or DriverSQLite. An empty driver
// means SQLite; an unknown one returns "".
func (c Config) Dialect() string {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite", "sqlite3", "":
		return DriverSQLite
	default:
		return ""
	}
}

// String is safe to log. SQLite configs leave out the unused server fields.
func (c Config) String() string {
	if c.Dialect() == DriverSQLite {
		return fmt.Sprintf("database.Config{Driver: %s, Path: %s}", DriverSQLite, c.Path)
	}
	return fmt.Sprintf("database.Config{Driver: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s}",
		c.Driver, c.Host, c.Port, c.User, c.Name, c.SSLMode)
}

func (c Config) DSN() string {
	switch c.Dialect() {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case DriverSQLite:
		return c.Path
	default:
		return ""
	}
}
