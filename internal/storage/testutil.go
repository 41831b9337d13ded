package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a file-based facts database in t.TempDir() with the full
// schema. The connection is closed by t.Cleanup().
//
// A file is used instead of ":memory:" because every pooled connection to
// ":memory:" would see its own empty database.
func NewTestDB(t testing.TB) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "facts.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}
