package db_test

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/accessgate/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.db")
	conn, err := db.InitSQLite(path)
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM auth_entries`).Scan(&n))
	assert.Zero(t, n)
}

func TestInitSQLite_AddsHintToLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE auth_entries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO auth_entries (id, name, type, payload, created_at, updated_at) VALUES ('a', 'old', 'pin', '1234', 1, 1)`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	conn, err := db.InitSQLite(path)
	require.NoError(t, err)
	defer conn.Close()

	var hint string
	require.NoError(t, conn.QueryRow(`SELECT hint FROM auth_entries WHERE id = 'a'`).Scan(&hint))
	assert.Equal(t, "", hint)

	// Reopening an up-to-date database is a no-op.
	again, err := db.InitSQLite(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open("oracle", "x")
	assert.Error(t, err)

	_, err = db.InitSQLite("  ")
	assert.Error(t, err)
}
