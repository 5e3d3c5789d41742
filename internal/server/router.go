// Package server implements C7, the Job API: the HTTP surface that accepts
// submissions, reports status, streams progress, and serves finished output.
// Routing is grounded on cklxx-elephant.ai's internal/delivery/server/http
// router: a Go 1.22+ http.NewServeMux with method-specific patterns, each
// route wrapped by routeHandler for consistent request logging.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lsilvatti/transdeck/internal/history"
	"github.com/lsilvatti/transdeck/internal/registry"
	"github.com/lsilvatti/transdeck/internal/statuscache"
)

// Deps bundles everything a Handler needs, assembled once at startup by
// cmd/transdeckd and threaded through every route.
type Deps struct {
	Registry    *registry.Registry
	StatusCache statuscache.Store
	History     *history.Store
	TempDir     string
	Logger      *slog.Logger
}

// NewRouter builds the complete mux for transdeckd.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{deps: deps}

	mux := http.NewServeMux()
	mux.Handle("POST /translation/file/{taskName}", routeHandler("/translation/file/{taskName}", deps.Logger, http.HandlerFunc(h.handleSubmit)))
	mux.Handle("GET /translation/status", routeHandler("/translation/status", deps.Logger, http.HandlerFunc(h.handleStatus)))
	mux.Handle("GET /translation/status/all", routeHandler("/translation/status/all", deps.Logger, http.HandlerFunc(h.handleStatusAll)))
	mux.Handle("GET /translation/download", routeHandler("/translation/download", deps.Logger, http.HandlerFunc(h.handleDownload)))
	mux.Handle("POST /translation/file/history/create", routeHandler("/translation/file/history/create", deps.Logger, http.HandlerFunc(h.handleHistoryCreate)))
	mux.Handle("GET /translation/file/history", routeHandler("/translation/file/history", deps.Logger, http.HandlerFunc(h.handleHistoryList)))
	return mux
}

// handler holds the dependencies every route method needs; methods live in
// submit.go, status.go, download.go, history.go, sse.go.
type handler struct {
	deps Deps
}

func routeHandler(route string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "route", route, "method", r.Method, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// userIDFromRequest extracts the partition key C5/C6 scope every task under.
// Authentication itself is out of scope (spec.md's AuthFailure error kind is
// never produced by this core); a trusted upstream proxy is expected to set
// X-User-ID, and requests without it are treated as a single shared
// "anonymous" user rather than rejected.
func userIDFromRequest(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

// writeError writes the {"detail": "..."} error envelope from §6.
func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
