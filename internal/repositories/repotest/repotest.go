// Package repotest opens throwaway SQLite databases with the production
// migrations applied, for repository and service tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/newsnexus/internal/dbx"
	"github.com/dmitrijs2005/newsnexus/internal/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// NewDB returns a migrated in-memory database private to the test. A single
// connection is kept open so every query sees the same memory database;
// code running inside InTx must use only the tx handle.
func NewDB(t testing.TB) *dbx.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db, "sqlite"))
	return dbx.New(db, "sqlite")
}
