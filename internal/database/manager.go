// Package database owns the *sql.DB handle. Reads go straight to the pool;
// writes are funnelled through one goroutine so sqlite never sees two
// concurrent writers.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"lingualink/internal/logger"
	"lingualink/migrations"
	dbconfig "lingualink/pkg/database"
	"lingualink/pkg/interfaces"
)

const writeQueueTimeout = 30 * time.Second

// Manager wraps the connection pool and the single-writer loop.
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	dialect      dbconfig.Dialect
	log          logger.Logger
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	ctx       context.Context
	operation func(ctx context.Context, db *sql.DB) error
	result    chan error
}

// NewManager opens the configured backend and starts the writer.
func NewManager(config *dbconfig.Config, log logger.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	db, err := sql.Open(config.Driver, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if config.Dialect() == dbconfig.SQLite {
		if _, err := db.Exec(dbconfig.SQLiteOptimizations()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
		}
	}

	m := &Manager{
		db:           db,
		config:       config,
		dialect:      config.Dialect(),
		log:          log.With(logger.Component("database")),
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	m.wg.Add(1)
	go m.writeLoop()

	return m, nil
}

// Migrate applies the dialect's schema files, validates the result and
// optionally loads the seed content.
func (m *Manager) Migrate(seed bool) error {
	dir := migrations.SQLiteDir
	if m.dialect == dbconfig.Postgres {
		dir = migrations.PostgresDir
	}

	mm := dbconfig.NewMigrationManager(m.db, migrations.FS, m.dialect)
	if err := mm.ApplyMigrations(dir); err != nil {
		return err
	}
	if err := dbconfig.NewSchemaValidator(m.db, m.dialect).Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if seed {
		if err := mm.ApplyMigrations(migrations.SeedDir); err != nil {
			return err
		}
	}
	m.log.Info("database migrated", logger.String("dialect", m.dialect.String()))
	return nil
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(op.ctx, m.db)
			if err != nil && isRetryable(err) && op.ctx.Err() == nil {
				m.log.Warn("database write busy, retrying",
					logger.Duration("delay", m.config.WriteRetryDelay), logger.Err(err))
				select {
				case <-time.After(m.config.WriteRetryDelay):
					err = op.operation(op.ctx, m.db)
				case <-op.ctx.Done():
					err = op.ctx.Err()
				}
				if err != nil {
					m.log.Error("database write failed after retry", logger.Err(err))
				}
			}
			op.result <- err

		case <-m.shutdown:
			m.log.Debug("database write loop shutting down")
			return
		}
	}
}

// Write queues fn on the writer goroutine and waits for it.
func (m *Manager) Write(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return interfaces.ErrClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)
	op := writeOperation{ctx: ctx, operation: fn, result: result}

	select {
	case m.writeChannel <- op:
	case <-time.After(writeQueueTimeout):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return interfaces.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-m.shutdown:
		return interfaces.ErrClosed
	}
}

// Exec runs a single rebound statement on the writer.
func (m *Manager) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := m.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, m.dialect.Rebind(query), args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// Insert runs an INSERT on the writer and returns the new row id.
func (m *Manager) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := m.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, m.dialect.Rebind(query+" RETURNING id"), args...).Scan(&id)
	})
	return id, err
}

// Query runs a read on the pool.
func (m *Manager) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, m.dialect.Rebind(query), args...)
}

// QueryRow runs a single-row read on the pool.
func (m *Manager) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return m.db.QueryRowContext(ctx, m.dialect.Rebind(query), args...)
}

func (m *Manager) DB() *sql.DB { return m.db }

func (m *Manager) Dialect() dbconfig.Dialect { return m.dialect }

// HealthCheck pings the pool and reads from a known table.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close stops the writer and closes the pool. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()
	return m.db.Close()
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isRetryable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// NullableID maps the zero id to SQL NULL for optional foreign keys.
func NullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
