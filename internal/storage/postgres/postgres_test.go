package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/internal/storage/storagetest"
)

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

// TestPostgresStore runs the shared suite against a real database.
// Set POSTGRES_TEST_DSN to enable it.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	admin, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { admin.Close() })

	storagetest.Run(t, func(t *testing.T) storage.Store {
		// Isolate each store in its own schema.
		schema := "clubsplit_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		ctx := context.Background()
		_, err := admin.DB().ExecContext(ctx, `CREATE SCHEMA `+schema)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = admin.DB().ExecContext(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
		})

		store, err := New(withSearchPath(dsn, schema))
		require.NoError(t, err)
		return store
	})
}

func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&search_path=" + schema
		}
		return dsn + "?search_path=" + schema
	}
	return dsn + " search_path=" + schema
}
