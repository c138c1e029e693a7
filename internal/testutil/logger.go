// Package testutil holds shared helpers for insightai package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug-level logger routed through t.Log, so
// pipeline and adapter log lines show up next to the failing assertion
// instead of on stderr. Output is only printed on failure or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(&logWriter{tb: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// logWriter adapts testing.TB to io.Writer for slog handlers.
type logWriter struct {
	tb testing.TB
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	// t.Log adds its own newline.
	w.tb.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
