package fasttextgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with fasttextgo-specific context.
// This provides structured logging with consistent field names.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogLoad logs a model load operation.
func (l *Logger) LogLoad(ctx context.Context, path string, mmapped bool, tookSeconds float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model loaded",
			"path", path,
			"mmap", mmapped,
			"took_s", tookSeconds,
		)
	}
}

// LogPredict logs a predict operation.
func (l *Logger) LogPredict(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogConvert logs a conversion to the memory-mapped layout.
func (l *Logger) LogConvert(ctx context.Context, dir string, tookSeconds float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model converted",
			"dir", dir,
			"took_s", tookSeconds,
		)
	}
}

// LogPrecompute logs the lazy word-vector precomputation.
func (l *Logger) LogPrecompute(ctx context.Context, nWords int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "word vector precompute failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "word vectors precomputed",
			"words", nWords,
		)
	}
}
