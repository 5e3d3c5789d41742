package server

import (
	"encoding/json"
	"net/http"

	"github.com/lsilvatti/transdeck/internal/statuscache"
	"github.com/lsilvatti/transdeck/internal/task"
)

// handleStatus implements GET /translation/status?task_id=....
func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	userID := userIDFromRequest(r)

	snap, err := h.deps.StatusCache.Get(r.Context(), userID, taskID)
	if err == statuscache.ErrNotFound {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// handleStatusAll implements GET /translation/status/all.
func (h *handler) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	snapshots, err := h.deps.StatusCache.GetAll(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snapshots == nil {
		snapshots = map[string]task.Snapshot{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshots)
}
