package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lsilvatti/transdeck/internal/task"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetByTaskID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, Record{
		UserID:         "user-a",
		TaskID:         "t1",
		TaskName:       "English➡︎Japanese",
		SourceFileName: "deck.pptx",
		SourceFilePath: "/tmp/deck.pptx",
		Status:         task.Processing,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.GetByTaskID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if got.Status != task.Processing || got.SourceFileName != "deck.pptx" {
		t.Errorf("GetByTaskID() = %+v", got)
	}

	if _, err := s.GetByTaskID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetByTaskID(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusPartialUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, Record{
		UserID: "user-a", TaskID: "t1", TaskName: "n",
		SourceFileName: "a.pptx", SourceFilePath: "/tmp/a.pptx",
		Status: task.Processing,
	}); err != nil {
		t.Fatal(err)
	}

	outName := "a-ja.pptx"
	outPath := "/tmp/out/a-ja.pptx"
	duration := 12.5
	if err := s.UpdateStatus(ctx, "t1", task.Completed, &outName, &outPath, &duration, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := s.GetByTaskID(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != task.Completed || got.TranslatedFileName == nil || *got.TranslatedFileName != outName {
		t.Errorf("GetByTaskID() after UpdateStatus = %+v", got)
	}
	if got.SourceFileName != "a.pptx" {
		t.Errorf("partial update clobbered source_file_name: %+v", got)
	}
}

func TestGetByUserIDScopesToUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := s.Insert(ctx, Record{
			UserID: "user-a", TaskID: id, TaskName: "n",
			SourceFileName: "a.pptx", SourceFilePath: "/tmp/a.pptx",
			Status: task.Completed,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Insert(ctx, Record{
		UserID: "user-b", TaskID: "other", TaskName: "n",
		SourceFileName: "b.pptx", SourceFilePath: "/tmp/b.pptx",
		Status: task.Completed,
	}); err != nil {
		t.Fatal(err)
	}

	records, err := s.GetByUserID(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("GetByUserID returned %d records, want 3", len(records))
	}
	for _, r := range records {
		if r.UserID != "user-a" {
			t.Errorf("GetByUserID leaked record from another user: %+v", r)
		}
	}
}
