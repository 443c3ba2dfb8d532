// Package sqlitestore is a store.Backend on a SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/rtti/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS rtti_objects (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

// Backend stores blobs in the rtti_objects table.
type Backend struct {
	db    *sql.DB
	owned bool
}

// New uses an already open database and creates the table if needed. The caller
// keeps ownership of db.
func New(ctx context.Context, db *sql.DB) (*Backend, error) {
	if db == nil {
		return nil, fmt.Errorf("database must not be nil")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create rtti_objects table: %w", err)
	}
	return &Backend{db: db}, nil
}

// Open opens the SQLite database at path, ":memory:" included.
func Open(ctx context.Context, path string) (*Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with path '%s': %w", path, err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	b, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}

// Close closes the database if it was opened by Open.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO rtti_objects (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		key, data)
	if err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	row := b.db.QueryRowContext(ctx, `SELECT data FROM rtti_objects WHERE key = ?`, key)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM rtti_objects WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM rtti_objects WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
