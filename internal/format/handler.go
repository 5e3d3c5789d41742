// Package format declares the interface every document-format handler (C3
// for .pptx, and any future handler) must satisfy, so C2's registry can
// dispatch on file extension without knowing concrete handler types.
package format

import (
	"context"

	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/task"
)

// Options carries the optional kwargs a submission may supply, per
// SPEC_FULL.md §6: run_parallely, target_pages, translate_pictures.
type Options struct {
	RunParallely      bool
	TargetPages       []int // zero-based slide indices; nil means "all"
	TranslatePictures bool
}

// KeywordMap is the ordered source-phrase -> mandated-target-phrase mapping
// consulted only by C1.
type KeywordMap = map[string]string

// Handler is C3's public contract, generalized per SPEC_FULL.md §9's
// "Dynamic registry" design note: a format handler translates a document and
// streams the task snapshot to progressFn after every observable mutation.
// The final call has terminal status. progressFn is invoked synchronously on
// the handler's own goroutine; callers that need it off their own call stack
// (e.g. SSE write vs. background fire-and-forget) wrap it accordingly.
type Handler interface {
	Translate(
		ctx context.Context,
		t *task.Task,
		inputPath string,
		source, target language.Language,
		keywords KeywordMap,
		outputDir string,
		opts Options,
		progressFn func(task.Snapshot),
	) error
}

// Factory lazily constructs a Handler. C2 holds one Factory per extension
// rather than a live Handler, since a Handler may carry per-job state (the
// teacher's registry pattern in internal/core/ai.ProviderFactory is the same
// shape: a factory keyed by name, not a pre-built instance).
type Factory func() Handler

// TextExtractor is an optional capability a Handler may implement to supply
// plain-text units pulled from a document, independent of translation. C7's
// glossary assist (SPEC_FULL.md §4.1a) uses this at submission time to scan
// for candidate terms; Translate itself never calls it, and a Handler that
// has no text to usefully extract simply doesn't implement it.
type TextExtractor interface {
	ExtractText(ctx context.Context, inputPath string) ([]string, error)
}
