// Package utils carries transdeckd's process-wide panic recovery, adapted
// from the teacher's RecoverPanic/SafeRun wrapping shape but with the
// lipgloss BSOD screen (meaningless on a headless server with no terminal to
// render to) replaced by a structured crash log written via log/slog, the
// same library the rest of the server uses for every other log line.
package utils

import (
	"log/slog"
	"runtime/debug"
)

const (
	Version = "v1.0.0"
	RepoURL = "https://github.com/lsilvatti/transdeck"
)

// RecoverPanic is the process-wide panic handler installed at the top of
// main and around every background goroutine. It logs the panic value and
// stack trace at Error level and re-panics, letting the caller decide
// whether that's fatal (main lets the process die; a worker goroutine may
// instead be restarted by its supervisor).
func RecoverPanic() {
	if r := recover(); r != nil {
		slog.Error("panic recovered",
			"panic", r,
			"stack", string(debug.Stack()),
			"version", Version,
		)
		panic(r)
	}
}

// SafeRun wraps fn with panic recovery and logging, swallowing the panic
// instead of re-raising it, for call sites (e.g. a per-connection SSE
// goroutine) where one failure must not bring down the whole process.
func SafeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in SafeRun",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
