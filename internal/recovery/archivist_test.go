package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lsilvatti/transdeck/internal/history"
	"github.com/lsilvatti/transdeck/internal/task"
)

func TestArchivistBundlesOldOutput(t *testing.T) {
	dir := t.TempDir()
	hist, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer hist.Close()

	outputPath := filepath.Join(dir, "deck_ja.pptx")
	if err := os.WriteFile(outputPath, []byte("fake pptx bytes"), 0644); err != nil {
		t.Fatalf("write fixture output: %v", err)
	}

	ctx := context.Background()
	if _, err := hist.Insert(ctx, history.Record{
		UserID:             "alice",
		TaskID:             "t1",
		TaskName:           "deck.pptx",
		SourceFileName:     "deck.pptx",
		SourceFilePath:     filepath.Join(dir, "deck.pptx"),
		TranslatedFileName: strPtr("deck_ja.pptx"),
		TranslatedFilePath: strPtr(outputPath),
		Status:             task.Completed,
	}); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	archiveDir := filepath.Join(dir, "archive")
	ar := NewArchivist(hist, &ArchivistConfig{
		RunInterval:     time.Hour,
		OutputRetention: 0,
		ArchiveDir:      archiveDir,
	}, nil)

	if err := ar.archiveOnce(ctx); err != nil {
		t.Fatalf("archiveOnce: %v", err)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("read archive dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one archive bundle, got %d", len(entries))
	}

	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Error("expected loose output file to be removed after archiving")
	}

	rec, err := hist.GetByTaskID(ctx, "t1")
	if err != nil {
		t.Fatalf("get history after archive: %v", err)
	}
	if rec.TranslatedFilePath == nil || *rec.TranslatedFilePath == outputPath {
		t.Error("expected translated_file_path to be repointed into the archive")
	}
}

func TestNewArchivistNilConfigDisables(t *testing.T) {
	ar := NewArchivist(nil, nil, nil)
	if ar != nil {
		t.Fatal("expected nil Archivist for nil config")
	}
	ar.Run(context.Background()) // must not panic
}

func strPtr(s string) *string { return &s }
