// Package history implements C6, the durable relational history table.
// Grounded, like statuscache, on internal/core/db.Cache's SQLite DAO style:
// a small struct wrapping *sql.DB with an initSchema step and hand-written
// query methods (no ORM anywhere in the retrieval pack).
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lsilvatti/transdeck/internal/task"
)

// ErrNotFound is returned when a task_id has no history row.
var ErrNotFound = errors.New("history: record not found")

// Record is C6's row-per-task durable schema, per SPEC_FULL.md §3.
type Record struct {
	ID                  int64
	UserID              string
	TaskID              string
	TaskName            string
	DateTime            time.Time
	SourceFileName      string
	SourceFilePath      string
	TranslatedFileName  *string
	TranslatedFilePath  *string
	Status              task.Status
	Duration            float64
	Error               *string
}

// Store is C6's DAO surface: insert, update_status, get_by_task_id,
// get_by_user_id.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or reuses a SQLite database at path and ensures the history
// table exists.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "transdeck.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS translation_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		task_id TEXT NOT NULL UNIQUE,
		task_name TEXT NOT NULL,
		date_time DATETIME DEFAULT CURRENT_TIMESTAMP,
		source_file_name TEXT NOT NULL,
		source_file_path TEXT NOT NULL,
		translated_file_name TEXT,
		translated_file_path TEXT,
		status TEXT NOT NULL,
		duration REAL NOT NULL DEFAULT 0.0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON translation_history(user_id, date_time DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Insert creates the history row at history-create time.
func (s *Store) Insert(ctx context.Context, r Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO translation_history
			(user_id, task_id, task_name, source_file_name, source_file_path,
			 translated_file_name, translated_file_path, status, duration, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.TaskID, r.TaskName, r.SourceFileName, r.SourceFilePath,
		r.TranslatedFileName, r.TranslatedFilePath, string(r.Status), r.Duration, r.Error)
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	return res.LastInsertId()
}

// UpdateStatus performs a partial update: only non-nil fields are
// overwritten, mirroring original_source's update_status (which skips
// None/empty fields rather than clobbering the row with defaults).
func (s *Store) UpdateStatus(ctx context.Context, taskID string, status task.Status, translatedFileName, translatedFilePath *string, duration *float64, errMsg *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE translation_history SET
			status = ?,
			translated_file_name = COALESCE(?, translated_file_name),
			translated_file_path = COALESCE(?, translated_file_path),
			duration = COALESCE(?, duration),
			error = COALESCE(?, error)
		WHERE task_id = ?
	`, string(status), translatedFileName, translatedFilePath, duration, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("history: update_status: %w", err)
	}
	return nil
}

// GetByTaskID returns the single row for a task id.
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, task_id, task_name, date_time, source_file_name,
		       source_file_path, translated_file_name, translated_file_path,
		       status, duration, error
		FROM translation_history WHERE task_id = ?
	`, taskID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: get_by_task_id: %w", err)
	}
	return r, nil
}

// GetByUserID returns every row for a user, newest first.
func (s *Store) GetByUserID(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, task_name, date_time, source_file_name,
		       source_file_path, translated_file_name, translated_file_path,
		       status, duration, error
		FROM translation_history WHERE user_id = ? ORDER BY date_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("history: get_by_user_id: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DistinctUsers returns every user_id with at least one history row, used by
// the retention archivist to walk the whole store a user at a time (there is
// no cross-user listing by design, matching C6's per-user access pattern).
func (s *Store) DistinctUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM translation_history`)
	if err != nil {
		return nil, fmt.Errorf("history: distinct_users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose
// Scan with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var status, dateTime string
	err := row.Scan(&r.ID, &r.UserID, &r.TaskID, &r.TaskName, &dateTime,
		&r.SourceFileName, &r.SourceFilePath, &r.TranslatedFileName, &r.TranslatedFilePath,
		&status, &r.Duration, &r.Error)
	if err != nil {
		return r, err
	}
	r.Status = task.Status(status)
	// The driver may hand back the DATETIME column either as SQLite's own
	// text form or as a time.Time that database/sql renders as RFC 3339.
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, parseErr := time.Parse(layout, dateTime); parseErr == nil {
			r.DateTime = t
			break
		}
	}
	return r, nil
}
