package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

var _ qdomain.Store = (*SQLiteStore)(nil)

// SQLiteStore implements domain.Store on a local SQLite file. A single connection
// serialises every statement, which makes the DELETE ... RETURNING pop atomic.
// Counter expiry is evaluated on read; expired rows behave as missing keys.
type SQLiteStore struct {
	db  *sql.DB
	now qdomain.Clock
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// An empty path or ":memory:" gives a process-local in-memory queue.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	inMemory := trimmed == "" || trimmed == ":memory:" || strings.Contains(trimmed, "mode=memory")
	if trimmed == "" {
		trimmed = ":memory:"
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock overrides the clock used for requeue stamps and counter expiry.
func (s *SQLiteStore) SetClock(now qdomain.Clock) { s.now = now }

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queue (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            payload TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS counters (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at INTEGER
        );`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Enqueue(ctx context.Context, e qdomain.EmailEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal email event: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO queue (payload) VALUES (?)`, string(data)); err != nil {
		return fmt.Errorf("failed to insert email event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Dequeue(ctx context.Context) (*qdomain.EmailEvent, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM queue WHERE seq = (SELECT MIN(seq) FROM queue) RETURNING payload`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop email event: %w", err)
	}
	var e qdomain.EmailEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email event: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) Requeue(ctx context.Context, e qdomain.EmailEvent) error {
	e.RetryCount++
	e.Timestamp = s.now().UnixMilli()
	return s.Enqueue(ctx, e)
}

func (s *SQLiteStore) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM counters WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().UnixMilli() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM counters WHERE key = ? AND expires_at = ?`, key, expiresAt.Int64); err != nil {
			return "", false, fmt.Errorf("failed to purge expired %s: %w", key, err)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set stores the value and clears any expiry, matching Redis SET.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO counters (key, value, expires_at) VALUES (?, ?, NULL)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Increment(ctx context.Context, key string) (int64, error) {
	now := s.now().UnixMilli()
	var n int64
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO counters (key, value, expires_at) VALUES (?, '1', NULL)
        ON CONFLICT(key) DO UPDATE SET
            value = CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN '1'
                         ELSE CAST(CAST(value AS INTEGER) + 1 AS TEXT) END,
            expires_at = CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN NULL
                              ELSE expires_at END
        RETURNING CAST(value AS INTEGER)`, key, now, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

func (s *SQLiteStore) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now().UnixMilli()
	exp := s.now().Add(ttl).UnixMilli()
	var n int64
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO counters (key, value, expires_at) VALUES (?, '1', ?)
        ON CONFLICT(key) DO UPDATE SET
            value = CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN '1'
                         ELSE CAST(CAST(value AS INTEGER) + 1 AS TEXT) END,
            expires_at = CASE WHEN expires_at IS NULL OR expires_at <= ? THEN ?
                              ELSE expires_at END
        RETURNING CAST(value AS INTEGER)`, key, exp, now, now, exp).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

// Expire is a no-op for missing or already expired keys, matching Redis EXPIRE.
func (s *SQLiteStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
        UPDATE counters SET expires_at = ?
        WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		now.Add(ttl).UnixMilli(), key, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to expire %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
