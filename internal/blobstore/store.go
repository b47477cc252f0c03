package blobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dcatwiz/internal/config"
)

// Store is the durable tier: JSON blobs keyed by (scope, key), backed by
// SQLite. Writes are flushed synchronously before Put returns so values
// survive across independent requests and process restarts.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
    scope_id   TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (scope_id, key)
);
CREATE INDEX IF NOT EXISTS idx_blobs_updated_at ON blobs (updated_at);
`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the blob database inside the data directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "workflows.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, path: dbPath, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	return s.path
}

// Put marshals value to JSON and stores it under (scopeID, key), overwriting
// any previous value.
func (s *Store) Put(ctx context.Context, scopeID, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal blob %s/%s: %w", scopeID, key, err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO blobs (scope_id, key, value, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (scope_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		scopeID, key, string(payload), timestamp,
	)
	if err != nil {
		return fmt.Errorf("put blob %s/%s: %w", scopeID, key, err)
	}
	return nil
}

// Get unmarshals the stored value for (scopeID, key) into dest and reports
// whether a usable value was found. Absent rows, read failures, and corrupt
// payloads all degrade to false; dest is left untouched in that case.
func (s *Store) Get(ctx context.Context, scopeID, key string, dest any) bool {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE scope_id = ? AND key = ?`, scopeID, key)
	if err := row.Scan(&payload); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("blob read failed", slog.String("scope_id", scopeID), slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		s.logger.Warn("blob payload corrupt", slog.String("scope_id", scopeID), slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Delete removes the value stored under (scopeID, key). Missing entries are not an error.
func (s *Store) Delete(ctx context.Context, scopeID, key string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM blobs WHERE scope_id = ? AND key = ?`, scopeID, key); err != nil {
		return fmt.Errorf("delete blob %s/%s: %w", scopeID, key, err)
	}
	return nil
}

// DeleteScope removes every value stored for scopeID.
func (s *Store) DeleteScope(ctx context.Context, scopeID string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM blobs WHERE scope_id = ?`, scopeID); err != nil {
		return fmt.Errorf("delete scope %s: %w", scopeID, err)
	}
	return nil
}

// Keys lists the logical keys currently stored for scopeID.
func (s *Store) Keys(ctx context.Context, scopeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM blobs WHERE scope_id = ? ORDER BY key`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("list keys for %s: %w", scopeID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Cleanup deletes entries older than the retention window. Best effort:
// concurrent deletion races are tolerated, the count of removed rows is
// returned for housekeeping logs.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, `DELETE FROM blobs WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup blobs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	delay := busyRetryInitialBackoff
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		if execErr == nil {
			return res, nil
		}
		if !isSQLiteBusy(execErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return res, execErr
}
