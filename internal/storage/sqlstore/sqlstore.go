// Package sqlstore implements storage.Store on top of database/sql.
//
// The same queries serve SQLite and PostgreSQL; a Dialect rewrites the
// '?' placeholders and runs any per-connection setup.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmynk/clubsplit/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	// Numbered placeholders ($1, $2, ...) instead of '?'.
	Numbered bool

	// Setup statements run once after opening.
	Setup []string

	// MaxOpenConns caps the pool when positive.
	MaxOpenConns int
}

// Rebind rewrites '?' placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store using a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with the dialect's driver and prepares the schema.
func Open(dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect.MaxOpenConns > 0 {
		db.SetMaxOpenConns(dialect.MaxOpenConns)
	}
	store, err := New(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database, runs the dialect setup and migrations.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Setup {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to run setup %q: %w", stmt, err)
		}
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
