// Package postgres connects the sqlstore to the managed PostgreSQL backend.
package postgres

import (
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mmynk/clubsplit/internal/storage/sqlstore"
)

// Dialect configures sqlstore for github.com/lib/pq.
var Dialect = sqlstore.Dialect{
	Driver:   "postgres",
	Numbered: true,
}

// New opens a store using a libpq connection string or URL.
func New(dsn string) (*sqlstore.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}

	store, err := sqlstore.Open(Dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	db := store.DB()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return store, nil
}
