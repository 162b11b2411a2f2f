package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flowmesh/localstore/internal/logger"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLite is an on-disk backend storing every key in one table
type SQLite struct {
	sqlDB *sql.DB
	path  string
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenSQLite opens (creating if needed) a SQLite database file at path
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := ensureDirectory(filepath.Dir(cleanPath)); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log := logger.WithComponent("backend.sqlite")
	log.Debug().Str("path", cleanPath).Msg("Opened SQLite DB")

	return &SQLite{sqlDB: sqlDB, path: cleanPath, log: log}, nil
}

// acquire holds the read lock for the duration of an operation so Close
// cannot release the DB underneath it
func (s *SQLite) acquire() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

// Close releases the SQLite connection
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.sqlDB.Close(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Failed to close SQLite DB")
		return err
	}
	return nil
}

// Set upserts a key
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if value == nil {
		value = []byte{}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO kv_entries (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, key, value)
	if err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return nil
}

// Get reads a key
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, false, err
	}
	defer release()

	var value []byte
	err = s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get key: %w", err)
	}
	return value, true, nil
}

// Delete removes a key
func (s *SQLite) Delete(ctx context.Context, key string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

// DeleteMany removes keys inside one transaction
func (s *SQLite) DeleteMany(ctx context.Context, keys []string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if len(keys) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM kv_entries WHERE key = ?`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete key %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.log.Debug().Int("count", len(keys)).Msg("Deleted keys")
	return nil
}

// ListAllKeys returns every key in the table
func (s *SQLite) ListAllKeys(ctx context.Context) ([]string, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key FROM kv_entries`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}
