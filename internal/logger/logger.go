// Package logger provides structured logging setup using slog, carrying a
// run correlation id through context the way request ids flow through an
// HTTP service.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type runIDKey struct{}

// Options controls the root logger's verbosity and destination.
type Options struct {
	Level  slog.Level
	Output *os.File
}

// New creates a structured JSON logger. A zero Options produces an
// info-level logger writing to stdout.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	}))
}

// WithRunID returns a new context carrying runID for later retrieval by
// FromContext.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run id stashed by WithRunID, or "" if none.
func RunIDFromContext(ctx context.Context) string {
	if v := ctx.Value(runIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns base with the context's run id attached as a field,
// so every log line emitted during a run can be grepped by run_id.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if runID := RunIDFromContext(ctx); runID != "" {
		return base.With("run_id", runID)
	}
	return base
}
