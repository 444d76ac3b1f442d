// Package db opens database connections and bootstraps the entry schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres selects the PostgreSQL backend.
	DriverPostgres = "postgres"
	// DriverSQLite selects the SQLite backend.
	DriverSQLite = "sqlite"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS auth_entries (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    deleted BOOLEAN NOT NULL DEFAULT FALSE
);

ALTER TABLE auth_entries ADD COLUMN IF NOT EXISTS hint TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS auth_entries_updated_at_idx ON auth_entries (updated_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS auth_entries (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS auth_entries_updated_at_idx ON auth_entries (updated_at DESC);
`

// InitPostgres connects to PostgreSQL and creates the schema.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// InitSQLite opens the SQLite file at path and creates the schema.
// Tables written before hints existed gain the hint column.
func InitSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrateSQLite(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var hasHint int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('auth_entries') WHERE name = 'hint'`,
	).Scan(&hasHint)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if hasHint == 0 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE auth_entries ADD COLUMN hint TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add hint column: %w", err)
		}
	}
	return nil
}

// Open connects to the configured backend. source is a DSN for
// PostgreSQL and a file path for SQLite.
func Open(driver, source string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
		return InitPostgres(source)
	case DriverSQLite:
		return InitSQLite(source)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
