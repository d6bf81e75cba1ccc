package vecscan

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecscan-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithStore adds the store (bucket) name to the logger.
func (l *Logger) WithStore(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", name),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id string, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"id", id,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"id", id,
			"dimension", dimension,
		)
	}
}

// LogBatch logs a multi-record operation.
func (l *Logger) LogBatch(ctx context.Context, op string, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "batch aborted",
			"op", op,
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch completed",
			"op", op,
			"count", count,
		)
	}
}

// LogQuery logs a query.
func (l *Logger) LogQuery(ctx context.Context, metric string, limit, scanned, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"metric", metric,
			"limit", limit,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"metric", metric,
			"limit", limit,
			"scanned", scanned,
			"results", results,
		)
	}
}

// LogSkip logs a record left out of a query.
func (l *Logger) LogSkip(ctx context.Context, level slog.Level, id, reason string) {
	l.Log(ctx, level, "record skipped",
		"id", id,
		"reason", reason,
	)
}

// LogAccelFallback logs a switch from the accelerated to the scalar path.
func (l *Logger) LogAccelFallback(ctx context.Context, err error) {
	l.WarnContext(ctx, "accelerated hamming unavailable, using scalar path",
		"error", err,
	)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", id,
		)
	}
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed",
			"id", id,
		)
	}
}
