package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/lsilvatti/transdeck/internal/history"
)

// handleHistoryCreate implements POST /translation/file/history/create?task_id=....
// It promotes a terminal C5 snapshot into a durable C6 row and deletes the
// C5 entry, per §4.7.
func (h *handler) handleHistoryCreate(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	userID := userIDFromRequest(r)

	snap, err := h.deps.StatusCache.Get(r.Context(), userID, taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	var translatedName, translatedPath *string
	if snap.OutputFilePath != nil {
		name := filepath.Base(*snap.OutputFilePath)
		translatedName = &name
		translatedPath = snap.OutputFilePath
	}
	var duration float64
	if snap.Duration != nil {
		duration = *snap.Duration
	}

	_, err = h.deps.History.Insert(r.Context(), history.Record{
		UserID:             userID,
		TaskID:             snap.TaskID,
		TaskName:           snap.TaskName,
		SourceFileName:     filepath.Base(snap.InputFilePath),
		SourceFilePath:     snap.InputFilePath,
		TranslatedFileName: translatedName,
		TranslatedFilePath: translatedPath,
		Status:             snap.Status,
		Duration:           duration,
		Error:              snap.Error,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.deps.StatusCache.Delete(r.Context(), userID, taskID); err != nil {
		h.deps.Logger.Warn("history promotion: could not delete status cache entry", "task_id", taskID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
}

// handleHistoryList implements GET /translation/file/history.
func (h *handler) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	records, err := h.deps.History.GetByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
