package server

import (
	"fmt"
	"net/http"
	"path/filepath"
)

// handleDownload implements GET /translation/download?task_id=.... The
// translated path is resolved via C6 first (the durable record), falling
// back to C5 for a job that hasn't been promoted to history yet.
func (h *handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	userID := userIDFromRequest(r)

	if rec, err := h.deps.History.GetByTaskID(r.Context(), taskID); err == nil {
		if rec.TranslatedFilePath == nil {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		name := taskID
		if rec.TranslatedFileName != nil {
			name = *rec.TranslatedFileName
		}
		serveFile(w, r, *rec.TranslatedFilePath, name)
		return
	}

	snap, err := h.deps.StatusCache.Get(r.Context(), userID, taskID)
	if err != nil || snap.OutputFilePath == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	serveFile(w, r, *snap.OutputFilePath, filepath.Base(*snap.OutputFilePath))
}

func serveFile(w http.ResponseWriter, r *http.Request, path, downloadName string) {
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName))
	http.ServeFile(w, r, path)
}
