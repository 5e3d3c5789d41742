package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lsilvatti/transdeck/internal/format"
	"github.com/lsilvatti/transdeck/internal/glossary"
	"github.com/lsilvatti/transdeck/internal/language"
	"github.com/lsilvatti/transdeck/internal/registry"
	"github.com/lsilvatti/transdeck/internal/statuscache"
	"github.com/lsilvatti/transdeck/internal/task"
	"github.com/lsilvatti/transdeck/internal/upload"
)

// glossaryMaxEditDistance bounds how close a scanned entity must be to an
// existing keyword before it's folded into it rather than suggested as new,
// per glossary.Reconcile.
const glossaryMaxEditDistance = 2

// submitParams is the JSON shape of the multipart "params" field, per
// SPEC_FULL.md §6.
type submitParams struct {
	SourceLanguage string            `json:"source_language"`
	TargetLanguage string            `json:"target_language"`
	KeywordsMap    map[string]string `json:"keywords_map"`
	Kwargs         submitKwargs      `json:"kwargs"`
	IsStream       bool              `json:"is_stream"`
}

type submitKwargs struct {
	RunParallely      bool  `json:"run_parallely"`
	TargetPages       []int `json:"target_pages"`
	TranslatePictures bool  `json:"translate_pictures"`
}

// handleSubmit implements POST /translation/file/{taskName}.
func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	taskName := r.PathValue("taskName")
	if strings.TrimSpace(taskName) == "" {
		writeError(w, http.StatusBadRequest, "task name is required")
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %v", err))
		return
	}

	var params submitParams
	if err := json.Unmarshal([]byte(r.FormValue("params")), &params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid params JSON: %v", err))
		return
	}
	source, err := language.Parse(params.SourceLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := language.Parse(params.TargetLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
		return
	}
	defer file.Close()

	safeName := upload.SecureFilename(fileHeader.Filename)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(safeName)), ".")

	fh, err := h.deps.Registry.HandlerFor(ext)
	if err != nil {
		var unsupported *registry.ErrUnsupportedFormat
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	originalDir := filepath.Join(h.deps.TempDir, "translation", "original")
	translatedDir := filepath.Join(h.deps.TempDir, "translation", "translated")
	if err := os.MkdirAll(originalDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create upload directory")
		return
	}
	if err := os.MkdirAll(translatedDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create output directory")
		return
	}

	inputPath := filepath.Join(originalDir, safeName)
	dst, err := os.Create(inputPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not save uploaded file")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "could not save uploaded file")
		return
	}
	dst.Close()

	userID := userIDFromRequest(r)
	taskID := task.NewID(time.Now(), safeName)
	t := task.New(userID, taskID, taskName, inputPath, statuscache.Persist{Store: h.deps.StatusCache})

	opts := format.Options{
		RunParallely:      params.Kwargs.RunParallely,
		TargetPages:       params.Kwargs.TargetPages,
		TranslatePictures: params.Kwargs.TranslatePictures,
	}

	if err := h.deps.StatusCache.Set(r.Context(), userID, t.Snapshot()); err != nil {
		writeError(w, http.StatusInternalServerError, "could not record task")
		return
	}

	run := func(ctx context.Context, progressFn func(task.Snapshot)) error {
		return fh.Translate(ctx, t, inputPath, source, target, format.KeywordMap(params.KeywordsMap), translatedDir, opts, progressFn)
	}

	if params.IsStream {
		h.streamSubmission(w, r, run)
		return
	}

	go func() {
		ctx := context.Background()
		if err := run(ctx, func(task.Snapshot) {}); err != nil {
			h.deps.Logger.Error("background translation failed", "task_id", taskID, "error", err)
		}
	}()

	resp := map[string]any{"task_id": taskID}
	if suggestions := h.glossarySuggestions(r.Context(), fh, inputPath, params.KeywordsMap); len(suggestions) > 0 {
		resp["glossary_suggestions"] = suggestions
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// glossarySuggestions scans the uploaded document for candidate terms and
// returns, as advisory suggestions, those that are neither in keywords nor
// within glossaryMaxEditDistance of a key already there (near-misses are
// folded away by glossary.Reconcile), per SPEC_FULL.md §4.1a. It never mutates keywords and never
// fails the submission: a handler that doesn't support extraction, or an
// extraction error, just means no suggestions this time.
func (h *handler) glossarySuggestions(ctx context.Context, fh format.Handler, inputPath string, keywords map[string]string) map[string]string {
	extractor, ok := fh.(format.TextExtractor)
	if !ok {
		return nil
	}
	texts, err := extractor.ExtractText(ctx, inputPath)
	if err != nil {
		h.deps.Logger.Warn("glossary text extraction failed", "input_path", inputPath, "error", err)
		return nil
	}

	entities := glossary.NewScanner().ScanTexts(texts)
	reconciled := glossary.Reconcile(keywords, entities, glossaryMaxEditDistance)

	suggestions := make(map[string]string)
	for k, v := range reconciled {
		if _, existed := keywords[k]; !existed {
			suggestions[k] = v
		}
	}
	return suggestions
}
