// Package repository provides persistence implementations for enrolled
// authentication entries backed by PostgreSQL or SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/accessgate/internal/clock"
	"github.com/atinyakov/accessgate/internal/db"
	"github.com/atinyakov/accessgate/internal/models"
)

// queries holds the dialect-specific SQL used by EntryRepository.
type queries struct {
	insert string
	update string
	get    string
	list   string
	delete string
	purge  string
}

var postgresQueries = queries{
	insert: `INSERT INTO auth_entries (id, name, type, payload, hint, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	update: `UPDATE auth_entries SET name = $2, type = $3, payload = $4, hint = $5, updated_at = $6 WHERE id = $1 AND deleted = false`,
	get:    `SELECT id, name, type, payload, COALESCE(hint, ''), created_at, updated_at FROM auth_entries WHERE id = $1 AND deleted = false`,
	list:   `SELECT id, name, type, payload, COALESCE(hint, ''), created_at, updated_at FROM auth_entries WHERE deleted = false ORDER BY updated_at DESC, id`,
	delete: `UPDATE auth_entries SET deleted = true, updated_at = $2 WHERE id = $1 AND deleted = false`,
	purge:  `DELETE FROM auth_entries WHERE deleted = true AND updated_at < $1`,
}

var sqliteQueries = queries{
	insert: `INSERT INTO auth_entries (id, name, type, payload, hint, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	update: `UPDATE auth_entries SET name = ?2, type = ?3, payload = ?4, hint = ?5, updated_at = ?6 WHERE id = ?1 AND deleted = 0`,
	get:    `SELECT id, name, type, payload, COALESCE(hint, ''), created_at, updated_at FROM auth_entries WHERE id = ? AND deleted = 0`,
	list:   `SELECT id, name, type, payload, COALESCE(hint, ''), created_at, updated_at FROM auth_entries WHERE deleted = 0 ORDER BY updated_at DESC, id`,
	delete: `UPDATE auth_entries SET deleted = 1, updated_at = ?2 WHERE id = ?1 AND deleted = 0`,
	purge:  `DELETE FROM auth_entries WHERE deleted = 1 AND updated_at < ?`,
}

// EntryRepository stores authentication entries in a SQL database.
// Deletes are soft; PurgeDeleted removes deleted rows for good.
type EntryRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB

	q     queries
	clock clock.Clock
	feed  *feed
}

// NewPostgresEntryRepository creates an EntryRepository over a PostgreSQL connection.
func NewPostgresEntryRepository(db *sql.DB, clk clock.Clock) *EntryRepository {
	return newEntryRepository(db, postgresQueries, clk)
}

// NewSQLiteEntryRepository creates an EntryRepository over a SQLite connection.
func NewSQLiteEntryRepository(db *sql.DB, clk clock.Clock) *EntryRepository {
	return newEntryRepository(db, sqliteQueries, clk)
}

// NewEntryRepository picks the SQL dialect for a connection opened with db.Open.
func NewEntryRepository(driver string, conn *sql.DB, clk clock.Clock) (*EntryRepository, error) {
	switch driver {
	case db.DriverPostgres:
		return NewPostgresEntryRepository(conn, clk), nil
	case db.DriverSQLite:
		return NewSQLiteEntryRepository(conn, clk), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func newEntryRepository(db *sql.DB, q queries, clk clock.Clock) *EntryRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &EntryRepository{DB: db, q: q, clock: clk, feed: newFeed()}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Create inserts a new entry stamped with the current time and returns its id.
func (r *EntryRepository) Create(ctx context.Context, name string, t models.MethodType, payload, hint string) (string, error) {
	now := r.clock.Now().UTC().Truncate(time.Millisecond)
	entry := models.AuthEntry{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      t,
		Payload:   payload,
		Hint:      hint,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.DB.ExecContext(ctx, r.q.insert,
		entry.ID, entry.Name, string(entry.Type), entry.Payload, entry.Hint,
		toMillis(entry.CreatedAt), toMillis(entry.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	r.feed.publish(entry.ID, &entry)
	return entry.ID, nil
}

// Update replaces the mutable fields of a live entry. The caller refreshes UpdatedAt.
// CreatedAt is never rewritten.
func (r *EntryRepository) Update(ctx context.Context, entry models.AuthEntry) error {
	res, err := r.DB.ExecContext(ctx, r.q.update,
		entry.ID, entry.Name, string(entry.Type), entry.Payload, entry.Hint, toMillis(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	r.feed.publish(entry.ID, &entry)
	return nil
}

// GetByID fetches a live entry. It returns models.ErrEntryNotFound when absent.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*models.AuthEntry, error) {
	e, err := scanEntry(r.DB.QueryRowContext(ctx, r.q.get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// ObserveByID streams the entry: its current value first, then every change.
// A nil value means the entry is absent. The channel closes when ctx is done.
func (r *EntryRepository) ObserveByID(ctx context.Context, id string) (<-chan *models.AuthEntry, error) {
	return r.feed.observe(ctx, id, r.GetByID)
}

// DeleteByID marks an entry deleted. It returns models.ErrEntryNotFound when absent.
func (r *EntryRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, r.q.delete, id, toMillis(r.clock.Now()))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	r.feed.publish(id, nil)
	return nil
}

// ListAll returns live entries, most recently updated first.
func (r *EntryRepository) ListAll(ctx context.Context) ([]models.AuthEntry, error) {
	rows, err := r.DB.QueryContext(ctx, r.q.list)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuthEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// PurgeDeleted removes entries deleted before the cutoff and returns how many were removed.
func (r *EntryRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, r.q.purge, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("purge entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.AuthEntry, error) {
	var (
		e                models.AuthEntry
		typ              string
		created, updated int64
	)
	if err := s.Scan(&e.ID, &e.Name, &typ, &e.Payload, &e.Hint, &created, &updated); err != nil {
		return nil, err
	}
	e.Type = models.MethodType(typ)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}
