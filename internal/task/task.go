// Package task implements C4, the mutable TranslationTask record. A Task
// knows nothing about HTTP or storage beyond an injected Persister; every
// field mutation goes through a setter that persists before returning, so a
// caller can never observe an update that wasn't written through.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the task lifecycle enumeration. PROCESSING is the only
// non-terminal state.
type Status string

const (
	Processing Status = "PROCESSING"
	Completed  Status = "COMPLETED"
	Error      Status = "ERROR"
)

// Persister is the write-through target for every mutation: C5 in
// production, an in-memory fake in tests.
type Persister interface {
	Persist(ctx context.Context, userID string, snapshot Snapshot) error
}

// Snapshot is the JSON-serializable, immutable view of a Task at a point in
// time. It is what gets written to the status cache and emitted over SSE.
type Snapshot struct {
	TaskID         string   `json:"task_id"`
	TaskName       string   `json:"task_name"`
	InputFilePath  string   `json:"input_file_path"`
	OutputFilePath *string  `json:"output_file_path"`
	Status         Status   `json:"status"`
	Progress       float64  `json:"progress"`
	Duration       *float64 `json:"duration"`
	Error          *string  `json:"error"`
}

// Task is C4: a single in-flight (or terminal) translation job.
type Task struct {
	mu sync.Mutex

	userID        string
	taskID        string
	taskName      string
	inputFilePath string

	outputFilePath *string
	status         Status
	progress       float64
	startedAt      time.Time
	duration       *float64
	errMsg         *string

	persist Persister
}

// New creates a Task in state PROCESSING, progress 0.0, per C4's lifecycle:
// "Created by C7 at submission in state PROCESSING, progress 0.0."
func New(userID, taskID, taskName, inputFilePath string, persist Persister) *Task {
	return &Task{
		userID:        userID,
		taskID:        taskID,
		taskName:      taskName,
		inputFilePath: inputFilePath,
		status:        Processing,
		progress:      0.0,
		startedAt:     time.Now(),
		persist:       persist,
	}
}

// TaskID returns the immutable task identifier.
func (t *Task) TaskID() string { return t.taskID }

// UserID returns the owning user partition key.
func (t *Task) UserID() string { return t.userID }

// Snapshot returns a consistent, race-free copy of the current state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() Snapshot {
	return Snapshot{
		TaskID:         t.taskID,
		TaskName:       t.taskName,
		InputFilePath:  t.inputFilePath,
		OutputFilePath: t.outputFilePath,
		Status:         t.status,
		Progress:       t.progress,
		Duration:       t.duration,
		Error:          t.errMsg,
	}
}

// SetProgress advances progress and persists. Per the monotone-progress
// invariant, a regression is a programmer error, not a recoverable one; the
// caller is expected to only ever call this with non-decreasing values, and
// we clamp defensively rather than silently letting it slip backwards.
func (t *Task) SetProgress(ctx context.Context, progress float64) error {
	t.mu.Lock()
	if progress > t.progress {
		t.progress = progress
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persistSnapshot(ctx, snap)
}

// Complete transitions the task to COMPLETED: sets output_file_path,
// progress to 1.0, and duration, then persists. Per the terminal-completeness
// invariant this is the only way to reach COMPLETED.
func (t *Task) Complete(ctx context.Context, outputFilePath string) error {
	t.mu.Lock()
	t.status = Completed
	t.progress = 1.0
	t.outputFilePath = &outputFilePath
	d := time.Since(t.startedAt).Seconds()
	t.duration = &d
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persistSnapshot(ctx, snap)
}

// Fail transitions the task to ERROR: sets error and duration, then
// persists. Per the error-completeness invariant this is the only way to
// reach ERROR.
func (t *Task) Fail(ctx context.Context, cause error) error {
	t.mu.Lock()
	t.status = Error
	msg := cause.Error()
	t.errMsg = &msg
	d := time.Since(t.startedAt).Seconds()
	t.duration = &d
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persistSnapshot(ctx, snap)
}

// RecordSlideError records a non-fatal per-slide failure without flipping
// status to ERROR, per C3's PerSlideFailure semantics: the first message
// is kept and each later slide error is appended after "; ", and
// translation continues.
func (t *Task) RecordSlideError(ctx context.Context, cause error) error {
	t.mu.Lock()
	msg := cause.Error()
	if t.errMsg == nil {
		t.errMsg = &msg
	} else {
		combined := *t.errMsg + "; " + msg
		t.errMsg = &combined
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persistSnapshot(ctx, snap)
}

func (t *Task) persistSnapshot(ctx context.Context, snap Snapshot) error {
	if t.persist == nil {
		return nil
	}
	if err := t.persist.Persist(ctx, t.userID, snap); err != nil {
		return fmt.Errorf("persist task %s: %w", t.taskID, err)
	}
	return nil
}

// NewID builds a TaskId per SPEC_FULL.md §3:
// "<monotonic-timestamp-seconds>_<original-filename>". now is injected so
// callers (and tests) control the clock rather than relying on time.Now()
// inside a package that otherwise has none.
func NewID(now time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), filename)
}
