package entitynet

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/entitynet/category"
)

// Logger wraps slog.Logger with entitynet-specific field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithCategory adds a category field to the logger.
func (l *Logger) WithCategory(c category.Category) *Logger {
	return &Logger{
		Logger: l.Logger.With("category", string(c)),
	}
}

// LogStage logs the duration of one comparator stage.
func (l *Logger) LogStage(ctx context.Context, stage string, d time.Duration) {
	l.DebugContext(ctx, "stage completed",
		"stage", stage,
		"duration_seconds", d.Seconds(),
	)
}

// LogCompare logs a finished category comparison.
func (l *Logger) LogCompare(ctx context.Context, occurrences, rows int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compare failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "compare completed",
		"occurrences", occurrences,
		"rows", rows,
		"duration_seconds", d.Seconds(),
	)
}

// LogSaturation warns that some queries filled all k candidate slots with
// scores at or above the threshold, so further matches may have been cut off.
func (l *Logger) LogSaturation(ctx context.Context, queries, k int, threshold float64) {
	l.WarnContext(ctx, "kneighbors saturated, matches above threshold may be excluded",
		"queries", queries,
		"k", k,
		"threshold", threshold,
	)
}

// LogNetwork logs a network resolution.
func (l *Logger) LogNetwork(ctx context.Context, nodes, networks int, entities bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "network failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "network completed",
		"nodes", nodes,
		"networks", networks,
		"entities", entities,
	)
}

// LogExport logs one written blob.
func (l *Logger) LogExport(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "blob written",
		"name", name,
		"bytes", bytes,
	)
}
