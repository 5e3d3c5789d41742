package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archiver/v3"

	"github.com/lsilvatti/transdeck/internal/history"
	"github.com/lsilvatti/transdeck/internal/task"
)

// ArchivistConfig configures the retention archivist.
type ArchivistConfig struct {
	// RunInterval is how often the archivist looks for rows to archive.
	RunInterval time.Duration
	// OutputRetention is how long a terminal row's translated file is kept
	// loose on disk before being bundled into the dated tarball.
	OutputRetention time.Duration
	// ArchiveDir is where dated transdeck-retained-<date>.tar.gz bundles are
	// written.
	ArchiveDir string
}

// DefaultArchivistConfig matches SPEC_FULL.md §4.8a's defaults.
func DefaultArchivistConfig(archiveDir string) *ArchivistConfig {
	return &ArchivistConfig{
		RunInterval:     24 * time.Hour,
		OutputRetention: 7 * 24 * time.Hour,
		ArchiveDir:      archiveDir,
	}
}

// Archivist periodically bundles old translated output referenced by C6 into
// a dated tar.gz, grounded on internal/core/dependencies.Manager's use of
// mholt/archiver/v3 to unpack downloaded tool archives — the same library,
// used here in the opposite direction to pack rather than unpack.
type Archivist struct {
	hist   *history.Store
	cfg    *ArchivistConfig
	logger *slog.Logger
}

// NewArchivist builds an Archivist. cfg may be nil, in which case it returns
// nil and Run on the nil *Archivist is a no-op.
func NewArchivist(hist *history.Store, cfg *ArchivistConfig, logger *slog.Logger) *Archivist {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archivist{hist: hist, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled. Safe to call on a nil *Archivist.
func (a *Archivist) Run(ctx context.Context) {
	if a == nil {
		return
	}
	ticker := time.NewTicker(a.cfg.RunInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.archiveOnce(ctx); err != nil {
				a.logger.Error("recovery: archive sweep failed", "error", err)
			}
		}
	}
}

// archiveOnce finds every terminal history row older than OutputRetention,
// bundles their loose translated files into one dated tarball, and rewrites
// each row's translated_file_path to point inside the archive member.
func (a *Archivist) archiveOnce(ctx context.Context) error {
	rows, err := a.staleRows(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	if err := os.MkdirAll(a.cfg.ArchiveDir, 0755); err != nil {
		return fmt.Errorf("recovery: create archive dir: %w", err)
	}
	archiveName := fmt.Sprintf("transdeck-retained-%s.tar.gz", time.Now().UTC().Format("2006-01-02"))
	archivePath := filepath.Join(a.cfg.ArchiveDir, archiveName)

	var sources []string
	for _, r := range rows {
		if r.TranslatedFilePath != nil {
			if _, err := os.Stat(*r.TranslatedFilePath); err == nil {
				sources = append(sources, *r.TranslatedFilePath)
			}
		}
	}
	if len(sources) == 0 {
		return nil
	}

	if err := archiver.Archive(sources, archivePath); err != nil {
		return fmt.Errorf("recovery: bundle retained output: %w", err)
	}

	for _, r := range rows {
		if r.TranslatedFilePath == nil {
			continue
		}
		member := filepath.Join(archivePath, filepath.Base(*r.TranslatedFilePath))
		if err := a.hist.UpdateStatus(ctx, r.TaskID, r.Status, nil, &member, nil, nil); err != nil {
			a.logger.Error("recovery: repoint archived history row failed", "task_id", r.TaskID, "error", err)
			continue
		}
		if err := os.Remove(*r.TranslatedFilePath); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("recovery: remove loose output after archiving failed", "path", *r.TranslatedFilePath, "error", err)
		}
	}

	a.logger.Info("recovery: archived retained output", "archive", archivePath, "count", len(sources))
	return nil
}

func (a *Archivist) staleRows(ctx context.Context) ([]history.Record, error) {
	// history.Store has no cross-user listing, so the archivist goes through
	// every user it knows from C6 itself rather than iterating all rows; in
	// practice this runs against the small working set of terminal jobs
	// older than OutputRetention.
	cutoff := time.Now().Add(-a.cfg.OutputRetention)
	users, err := a.hist.DistinctUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("recovery: list users: %w", err)
	}

	var out []history.Record
	for _, userID := range users {
		rows, err := a.hist.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("recovery: list history for %s: %w", userID, err)
		}
		for _, r := range rows {
			if (r.Status == task.Completed || r.Status == task.Error) && r.DateTime.Before(cutoff) && r.TranslatedFilePath != nil {
				out = append(out, r)
			}
		}
	}
	return out, nil
}
