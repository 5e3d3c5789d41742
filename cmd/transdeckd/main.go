// Command transdeckd runs the file translation service: it loads
// configuration, opens C5/C6, wires C2/C3, starts C8's background sweeper
// and archivist, optionally starts the drop-folder watcher, and serves C7's
// HTTP API until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lsilvatti/transdeck/internal/config"
	"github.com/lsilvatti/transdeck/internal/core/ai"
	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/history"
	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/pptx"
	"github.com/lsilvatti/transdeck/internal/recovery"
	"github.com/lsilvatti/transdeck/internal/registry"
	"github.com/lsilvatti/transdeck/internal/server"
	"github.com/lsilvatti/transdeck/internal/statuscache"
	"github.com/lsilvatti/transdeck/internal/task"
	"github.com/lsilvatti/transdeck/internal/upload"
	"github.com/lsilvatti/transdeck/internal/watchfolder"
	"github.com/lsilvatti/transdeck/pkg/utils"
)

func main() {
	defer utils.RecoverPanic()

	logger := slog.Default()
	if err := run(logger); err != nil {
		logger.Error("transdeckd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.LogLevel)

	config.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed, keeping previous configuration", "error", err)
			return
		}
		logger.Info("configuration reloaded")
		cfg = next
	})

	statusCache, err := statuscache.Open(cfg.StatusCacheDBPath)
	if err != nil {
		return fmt.Errorf("open status cache: %w", err)
	}
	defer statusCache.Close()

	historyStore, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer historyStore.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := ai.NewProviderFactory(cfg).CreateProvider(ctx)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}

	reg := registry.New()
	reg.Register("pptx", func() format.Handler { return pptx.NewHandler(provider) })

	sweeper := recovery.NewSweeper(statusCache, historyStore, sweeperConfig(cfg), logger)
	go sweeper.Run(ctx)

	archivist := recovery.NewArchivist(historyStore, archivistConfig(cfg), logger)
	go archivist.Run(ctx)

	deps := server.Deps{
		Registry:    reg,
		StatusCache: statusCache,
		History:     historyStore,
		TempDir:     cfg.Storage.TempDir,
		Logger:      logger,
	}

	if cfg.DropFolder.Enabled {
		stop, err := startWatchFolder(ctx, cfg, deps, logger)
		if err != nil {
			return fmt.Errorf("start drop folder watcher: %w", err)
		}
		defer stop()
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(deps),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("transdeckd listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-serveErr
}

// sweeperConfig adapts cfg.Retention to recovery.SweeperConfig. A
// StaleAfter explicitly set to 0 disables the sweeper (config.Default sets
// it to 2h, so it runs when unset): NewSweeper returns nil for a nil
// config, and a nil *Sweeper's Run
// is a no-op, so callers never need to branch on whether retention was set.
func sweeperConfig(cfg *config.Config) *recovery.SweeperConfig {
	if cfg.Retention.StaleAfter == 0 {
		return nil
	}
	checkInterval := cfg.Retention.SweepPeriod
	if checkInterval == 0 {
		checkInterval = 60 * time.Second
	}
	return &recovery.SweeperConfig{
		CheckInterval:  checkInterval,
		StalenessBound: cfg.Retention.StaleAfter,
	}
}

// archivistConfig mirrors sweeperConfig's opt-in-via-nil shape for the
// retention archivist.
func archivistConfig(cfg *config.Config) *recovery.ArchivistConfig {
	if cfg.Retention.ArchiveAge == 0 {
		return nil
	}
	return &recovery.ArchivistConfig{
		RunInterval:     24 * time.Hour,
		OutputRetention: cfg.Retention.ArchiveAge,
		ArchiveDir:      cfg.Retention.ArchiveDir,
	}
}

// startWatchFolder wires C4.7a's optional drop-folder ingestion: a new file
// under cfg.DropFolder.Path is submitted as a job using the configured
// default language pair, with no streaming and no keyword map.
func startWatchFolder(ctx context.Context, cfg *config.Config, deps server.Deps, logger *slog.Logger) (func(), error) {
	source, err := language.Parse(cfg.DropFolder.SourceLang)
	if err != nil {
		return nil, fmt.Errorf("drop folder source_lang: %w", err)
	}
	target, err := language.Parse(cfg.DropFolder.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("drop folder target_lang: %w", err)
	}

	w, err := watchfolder.New(cfg.DropFolder.Path)
	if err != nil {
		return nil, err
	}
	w.OnError = func(err error) {
		logger.Error("watch folder error", "error", err)
	}
	w.OnNewFile = func(path string) {
		utils.SafeRun(func() {
			submitDroppedFile(ctx, deps, path, source, target, logger)
		})
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	logger.Info("watching drop folder", "path", cfg.DropFolder.Path)
	return w.Stop, nil
}

func submitDroppedFile(ctx context.Context, deps server.Deps, path string, source, target language.Language, logger *slog.Logger) {
	fh, err := deps.Registry.HandlerFor("pptx")
	if err != nil {
		logger.Error("drop folder: no handler registered", "error", err)
		return
	}

	safeName := upload.SecureFilename(filepath.Base(path))
	taskID := task.NewID(time.Now(), safeName)
	t := task.New("dropfolder", taskID, safeName, path, statuscache.Persist{Store: deps.StatusCache})
	if err := deps.StatusCache.Set(ctx, t.UserID(), t.Snapshot()); err != nil {
		logger.Error("drop folder: could not record task", "task_id", taskID, "error", err)
		return
	}

	translatedDir := filepath.Join(deps.TempDir, "translation", "translated")
	if err := fh.Translate(ctx, t, path, source, target, nil, translatedDir, format.Options{}, func(task.Snapshot) {}); err != nil {
		logger.Error("drop folder translation failed", "path", path, "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
