// Package recovery implements C8: a staleness sweeper that reclaims jobs
// orphaned by a server restart, and a retention archivist that bundles old
// translated output into dated tarballs. Both are opt-in background
// goroutines, structurally grounded on the teacher's own periodic-task idiom
// (internal/core/dependencies.Manager's download/verify loop shape) but built
// fresh since nothing in the teacher polls a store on a ticker.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lsilvatti/transdeck/internal/history"
	"github.com/lsilvatti/transdeck/internal/statuscache"
	"github.com/lsilvatti/transdeck/internal/task"
)

// SweeperConfig configures the staleness sweeper. A nil *SweeperConfig passed
// to NewSweeper disables it; see Run.
type SweeperConfig struct {
	// CheckInterval is how often the sweeper polls the status cache.
	CheckInterval time.Duration
	// StalenessBound is how long a PROCESSING task may go without an update
	// before it is presumed abandoned.
	StalenessBound time.Duration
}

// DefaultSweeperConfig matches SPEC_FULL.md §4.8a's defaults.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		CheckInterval:  60 * time.Second,
		StalenessBound: 10 * time.Minute,
	}
}

// Sweeper reclaims PROCESSING tasks whose last update predates the
// staleness bound, marking them ERROR and promoting a history row if the
// task was never promoted.
type Sweeper struct {
	cache  statuscache.Store
	hist   *history.Store
	cfg    *SweeperConfig
	logger *slog.Logger
}

// NewSweeper builds a Sweeper. cfg may be nil, meaning the caller does not
// intend to run it (Run treats a nil *Sweeper as a no-op so callers
// can wire this unconditionally).
func NewSweeper(cache statuscache.Store, hist *history.Store, cfg *SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{cache: cache, hist: hist, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled. Safe to call on a nil *Sweeper (no-op),
// so server wiring can always launch it in a goroutine regardless of whether
// recovery was configured.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logger.Error("recovery: sweep failed", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	olderThan := time.Now().Add(-s.cfg.StalenessBound)
	stale, err := s.cache.Stale(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("recovery: list stale tasks: %w", err)
	}
	for _, entry := range stale {
		if err := s.reclaim(ctx, entry); err != nil {
			s.logger.Error("recovery: reclaim task failed", "task_id", entry.Snapshot.TaskID, "error", err)
		}
	}
	return nil
}

func (s *Sweeper) reclaim(ctx context.Context, entry statuscache.StaleEntry) error {
	snap := entry.Snapshot
	errMsg := "task abandoned: server restarted mid-translation"
	snap.Status = task.Error
	snap.Error = &errMsg
	if err := s.cache.Set(ctx, entry.UserID, snap); err != nil {
		return fmt.Errorf("mark stale task error: %w", err)
	}
	s.logger.Warn("recovery: reclaimed abandoned task", "task_id", snap.TaskID, "user_id", entry.UserID)

	if s.hist == nil {
		return nil
	}
	if _, err := s.hist.GetByTaskID(ctx, snap.TaskID); err == nil {
		return s.hist.UpdateStatus(ctx, snap.TaskID, task.Error, nil, nil, snap.Duration, &errMsg)
	} else if err != history.ErrNotFound {
		return fmt.Errorf("check existing history row: %w", err)
	}

	var duration float64
	if snap.Duration != nil {
		duration = *snap.Duration
	}
	_, err := s.hist.Insert(ctx, history.Record{
		UserID:         entry.UserID,
		TaskID:         snap.TaskID,
		TaskName:       snap.TaskName,
		SourceFileName: snap.InputFilePath,
		SourceFilePath: snap.InputFilePath,
		Status:         task.Error,
		Duration:       duration,
		Error:          &errMsg,
	})
	if err != nil {
		return fmt.Errorf("promote reclaimed task to history: %w", err)
	}
	return nil
}
