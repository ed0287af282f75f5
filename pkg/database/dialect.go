package database

import (
	"strconv"
	"strings"
)

// Driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Dialect captures the few places where sqlite and PostgreSQL differ for
// the queries this project issues.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites '?' placeholders into '$n' for PostgreSQL. Question marks
// inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TableExistsQuery returns a query counting tables named by its single argument.
func (d Dialect) TableExistsQuery() string {
	if d == Postgres {
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	}
	return "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
}

// IndexExistsQuery returns a query counting indexes named by its single argument.
func (d Dialect) IndexExistsQuery() string {
	if d == Postgres {
		return "SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND indexname = $1"
	}
	return "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?"
}
