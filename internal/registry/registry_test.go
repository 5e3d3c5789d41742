package registry

import (
	"context"
	"testing"

	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/task"
)

type stubHandler struct{}

func (stubHandler) Translate(ctx context.Context, t *task.Task, inputPath string, source, target language.Language, keywords format.KeywordMap, outputDir string, opts format.Options, progressFn func(task.Snapshot)) error {
	return nil
}

func TestHandlerForUnknownExtension(t *testing.T) {
	r := New()
	if _, err := r.HandlerFor("odt"); err == nil {
		t.Fatal("expected ErrUnsupportedFormat for unregistered extension")
	} else if _, ok := err.(*ErrUnsupportedFormat); !ok {
		t.Errorf("error type = %T, want *ErrUnsupportedFormat", err)
	}
}

func TestHandlerForNormalizesExtension(t *testing.T) {
	r := New()
	calls := 0
	r.Register("PPTX", func() format.Handler {
		calls++
		return stubHandler{}
	})

	if _, err := r.HandlerFor(".pptx"); err != nil {
		t.Fatalf("HandlerFor(.pptx): %v", err)
	}
	if _, err := r.HandlerFor("pptx"); err != nil {
		t.Fatalf("HandlerFor(pptx): %v", err)
	}
	if calls != 2 {
		t.Errorf("factory invoked %d times, want 2 (lazy per call)", calls)
	}
}

func TestRegisterReplacesExistingFactory(t *testing.T) {
	r := New()
	r.Register("pptx", func() format.Handler { return stubHandler{} })
	r.Register("pptx", func() format.Handler { return stubHandler{} })

	if len(r.Extensions()) != 1 {
		t.Errorf("Extensions() = %v, want exactly one entry after replace", r.Extensions())
	}
}
