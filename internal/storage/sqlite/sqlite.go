// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/clubsplit/internal/storage/sqlstore"
)

// Dialect configures sqlstore for the modernc.org/sqlite driver.
var Dialect = sqlstore.Dialect{
	Driver: "sqlite",
	Setup: []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	},
	// SQLite serializes writers; one connection keeps the PRAGMAs in effect.
	MaxOpenConns: 1,
}

// New creates a store backed by the SQLite file at dbPath.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*sqlstore.Store, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return sqlstore.Open(Dialect, dbPath)
}
