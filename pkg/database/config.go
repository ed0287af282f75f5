package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds the connection settings for either backend.
type Config struct {
	Driver          string        `json:"driver"`
	DatabasePath    string        `json:"database_path"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslmode"`
	MaxConnections  int           `json:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	WriteRetryDelay time.Duration `json:"write_retry_delay"`
}

// DefaultConfig returns an on-disk sqlite configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverSQLite,
		DatabasePath:    "./data/lingualink.db",
		Port:            5432,
		SSLMode:         "disable",
		MaxConnections:  10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		WriteRetryDelay: 5 * time.Second,
	}
}

// Validate ensures the configuration can open a database.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("database path cannot be empty")
		}
	case DriverPostgres:
		if c.Host == "" {
			return errors.New("database host cannot be empty")
		}
		if c.Name == "" {
			return errors.New("database name cannot be empty")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return errors.New("database port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.MaxConnections <= 0 {
		return errors.New("max connections must be greater than 0")
	}
	if c.ConnMaxLifetime <= 0 {
		return errors.New("connection max lifetime must be greater than 0")
	}
	if c.ConnMaxIdleTime <= 0 {
		return errors.New("connection max idle time must be greater than 0")
	}
	return nil
}

// Dialect returns the SQL flavour spoken by the configured driver.
func (c *Config) Dialect() Dialect {
	if c.Driver == DriverPostgres {
		return Postgres
	}
	return SQLite
}

// DSN builds the data source name handed to sql.Open.
func (c *Config) DSN() string {
	if c.Driver == DriverPostgres {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:   "/" + c.Name,
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
		}
		return u.String()
	}
	return c.DatabasePath + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// sqlite pragmas applied after open.
const sqliteOptimizations = `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;
	PRAGMA cache_size = -64000;
	PRAGMA temp_store = MEMORY;
	PRAGMA foreign_keys = ON;
	PRAGMA busy_timeout = 5000;
`

// SQLiteOptimizations returns the pragma block for sqlite connections.
func SQLiteOptimizations() string {
	return sqliteOptimizations
}
