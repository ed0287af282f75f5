package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migration is one versioned SQL file. Versions are scoped to their
// directory, so sqlite/001 and seed/001 are distinct migrations.
type Migration struct {
	Dir         string
	Version     string
	Description string
	SQL         string
}

// Key is the schema_migrations row recorded for m.
func (m Migration) Key() string { return path.Join(m.Dir, m.Version) }

// MigrationManager applies versioned SQL files from a filesystem, usually
// the embedded migrations package, and records them in schema_migrations.
type MigrationManager struct {
	db      *sql.DB
	fsys    fs.FS
	dialect Dialect
}

func NewMigrationManager(db *sql.DB, fsys fs.FS, dialect Dialect) *MigrationManager {
	return &MigrationManager{db: db, fsys: fsys, dialect: dialect}
}

// ApplyMigrations applies every pending file of dir in version order. Each
// file runs in its own transaction together with its bookkeeping row.
func (m *MigrationManager) ApplyMigrations(dir string) error {
	if err := m.createMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	migrations, err := m.loadMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}

	applied, err := m.AppliedVersions()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Key()] {
			continue
		}
		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s (%s): %w", migration.Key(), migration.Description, err)
		}
	}
	return nil
}

// AppliedVersions returns the set of recorded "dir/version" keys.
func (m *MigrationManager) AppliedVersions() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions[v] = true
	}
	return versions, rows.Err()
}

func (m *MigrationManager) createMigrationTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// loadMigrations reads "NNN_description.sql" files of dir sorted by version.
func (m *MigrationManager) loadMigrations(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(m.fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		version, rest, _ := strings.Cut(entry.Name(), "_")
		migrations = append(migrations, Migration{
			Dir:         dir,
			Version:     version,
			Description: strings.TrimSuffix(rest, ".sql"),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *MigrationManager) applyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(migration.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(m.dialect.Rebind("INSERT INTO schema_migrations (version) VALUES (?)"), migration.Key()); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements breaks a file on top-level semicolons so drivers that
// only accept one statement per Exec (pgx) can run it. Semicolons inside
// quoted literals are kept.
func splitStatements(src string) []string {
	var (
		stmts   []string
		current strings.Builder
		inQuote bool
	)
	for _, r := range src {
		switch {
		case r == '\'':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ';' && !inQuote:
			if s := strings.TrimSpace(current.String()); s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
