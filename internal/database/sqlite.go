// Package database provides the SQLite-backed draft store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"wishlist-go/internal/database/migrations"
	"wishlist-go/internal/wishlist"
)

// SQLiteStorage implements wishlist.Storage on a single SQLite table.
type SQLiteStorage struct {
	db      *sql.DB
	path    string
	maxSize int64
	clock   wishlist.Clock
}

// NewSQLiteStorage opens the database at path, creating parent directories,
// and migrates it to the latest schema. path may be ":memory:".
// maxSize caps the total bytes of keys and values; <= 0 disables the cap.
func NewSQLiteStorage(path string, maxSize int64, clock wishlist.Clock) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db, path: path, maxSize: maxSize, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection. In-memory
// databases are pinned to one connection, since each connection would
// otherwise see its own empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

func (s *SQLiteStorage) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM drafts WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(key string, value []byte) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.maxSize > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(length(key) + length(value)), 0) FROM drafts WHERE key != ?", key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("measuring storage: %w", err)
		}
		if used+int64(len(key)+len(value)) > s.maxSize {
			return fmt.Errorf("setting %s: %w", key, wishlist.ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.clock.Now().UnixMilli())
	if err != nil {
		return classifyWriteErr(key, err)
	}
	if err := tx.Commit(); err != nil {
		return classifyWriteErr(key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM drafts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStorage) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStorage) CheckMigrations() error {
	return migrations.Check(s.db)
}

func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// classifyWriteErr maps SQLite's disk-full condition to ErrQuotaExceeded.
func classifyWriteErr(key string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("writing %s: %w: %w", key, wishlist.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("writing %s: %w", key, err)
}

// Compile-time check that SQLiteStorage implements wishlist.Storage interface
var _ wishlist.Storage = (*SQLiteStorage)(nil)
