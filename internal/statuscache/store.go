// Package statuscache implements C5, the per-user status store. spec.md
// describes this as a Redis hash keyed "file:translation:status:<user>"
// with task_id fields; no example repo in the retrieval pack imports a Redis
// client, so this is implemented atop the teacher's own embedded-KV
// substrate (modernc.org/sqlite, the same driver internal/core/db.Cache
// uses) behind a Store interface — see SPEC_FULL.md §4.5a. A Redis-backed
// Store can be substituted later without touching callers.
package statuscache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lsilvatti/transdeck/internal/task"
)

// ErrNotFound is returned by Get when the (user, task) pair has no entry.
var ErrNotFound = errors.New("statuscache: task not found")

// Store is C5's logical interface: exists/get/get_all/set/delete, scoped by
// user_id.
type Store interface {
	Exists(ctx context.Context, userID, taskID string) (bool, error)
	Get(ctx context.Context, userID, taskID string) (task.Snapshot, error)
	GetAll(ctx context.Context, userID string) (map[string]task.Snapshot, error)
	Set(ctx context.Context, userID string, snap task.Snapshot) error
	Delete(ctx context.Context, userID, taskID string) error
	// Stale returns every entry still PROCESSING whose last write is older
	// than olderThan, across all users — used by C8's sweeper.
	Stale(ctx context.Context, olderThan time.Time) ([]StaleEntry, error)
}

// StaleEntry pairs a snapshot with the user partition it belongs to, since
// Snapshot itself carries no user_id (it is stored as the field value, not
// the key).
type StaleEntry struct {
	UserID   string
	Snapshot task.Snapshot
}

// SQLiteStore is the Store implementation named in SPEC_FULL.md §4.5a.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or reuses a SQLite database at path and ensures the
// status_cache table/index exist, mirroring internal/core/db.Cache's
// newCache/initSchema shape (WAL mode, bounded connection pool).
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "transdeck.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statuscache: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statuscache: enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("statuscache: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS status_cache (
		user_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, task_id)
	);
	CREATE INDEX IF NOT EXISTS idx_status_cache_user ON status_cache(user_id);
	CREATE INDEX IF NOT EXISTS idx_status_cache_status ON status_cache(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Exists(ctx context.Context, userID, taskID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM status_cache WHERE user_id = ? AND task_id = ?`,
		userID, taskID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("statuscache: exists: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID, taskID string) (task.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM status_cache WHERE user_id = ? AND task_id = ?`,
		userID, taskID).Scan(&payload)
	if err == sql.ErrNoRows {
		return task.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("statuscache: get: %w", err)
	}
	var snap task.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return task.Snapshot{}, fmt.Errorf("statuscache: decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, userID string) (map[string]task.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, payload_json FROM status_cache WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("statuscache: get_all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]task.Snapshot)
	for rows.Next() {
		var taskID, payload string
		if err := rows.Scan(&taskID, &payload); err != nil {
			return nil, fmt.Errorf("statuscache: scan: %w", err)
		}
		var snap task.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("statuscache: decode snapshot: %w", err)
		}
		out[taskID] = snap
	}
	return out, rows.Err()
}

// Set is C4's write-through target: a whole-value replacement, matching the
// last-writer-wins consistency model (no CAS needed under the
// single-writer-per-task invariant).
func (s *SQLiteStore) Set(ctx context.Context, userID string, snap task.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("statuscache: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO status_cache (user_id, task_id, payload_json, status, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, task_id) DO UPDATE SET
			payload_json = excluded.payload_json,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, userID, snap.TaskID, string(payload), string(snap.Status))
	if err != nil {
		return fmt.Errorf("statuscache: set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM status_cache WHERE user_id = ? AND task_id = ?`, userID, taskID)
	if err != nil {
		return fmt.Errorf("statuscache: delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Stale(ctx context.Context, olderThan time.Time) ([]StaleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, payload_json FROM status_cache
		WHERE status = ? AND updated_at < ?
	`, string(task.Processing), olderThan.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, fmt.Errorf("statuscache: stale: %w", err)
	}
	defer rows.Close()

	var out []StaleEntry
	for rows.Next() {
		var userID, payload string
		if err := rows.Scan(&userID, &payload); err != nil {
			return nil, fmt.Errorf("statuscache: scan: %w", err)
		}
		var snap task.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("statuscache: decode snapshot: %w", err)
		}
		out = append(out, StaleEntry{UserID: userID, Snapshot: snap})
	}
	return out, rows.Err()
}

// Persist adapts Store to task.Persister so a *task.Task can write directly
// through a cache without either package depending on the other's concrete
// type.
type Persist struct {
	Store Store
}

func (p Persist) Persist(ctx context.Context, userID string, snap task.Snapshot) error {
	return p.Store.Set(ctx, userID, snap)
}
