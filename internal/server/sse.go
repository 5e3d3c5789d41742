package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lsilvatti/transdeck/internal/task"
)

// streamSubmission drives a submission's handler in the request goroutine,
// emitting one SSE frame per progress snapshot, grounded on
// cklxx-elephant.ai's sseTransport.Stream: text/event-stream headers,
// http.Flusher after every frame, and a per-request context that the handler
// ignores on client disconnect (per SPEC_FULL.md §5: "client disconnect
// during streaming mode does not cancel the job").
func (h *handler) streamSubmission(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, progressFn func(task.Snapshot)) error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	progressFn := func(snap task.Snapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			h.deps.Logger.Error("encode sse snapshot failed", "task_id", snap.TaskID, "error", err)
			return
		}
		if err := writeSSEPayload(w, payload); err != nil {
			h.deps.Logger.Warn("sse write failed", "task_id", snap.TaskID, "error", err)
			return
		}
		flusher.Flush()
	}

	// The job runs to completion regardless of client disconnect, per §5, so
	// it is handed context.Background() rather than r.Context(); only the
	// write side observes the broken connection (and simply stops mattering
	// once the handler returns).
	if err := run(context.Background(), progressFn); err != nil {
		h.deps.Logger.Error("streamed translation failed", "error", err)
	}
}

func writeSSEPayload(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprint(w, "data: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\n\n")
	return err
}
