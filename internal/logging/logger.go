// Package logging wraps slog.Logger with arena-specific helpers so every
// component reports the same field names.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with arena-specific context.
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

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithArena tags the logger with an arena identifier.
func (l *Logger) WithArena(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", id),
	}
}

// LogAcquire logs acquisition of a backing buffer.
func (l *Logger) LogAcquire(ctx context.Context, capacity int, offHeap bool, err error) {
	if err != nil {
		l.WarnContext(ctx, "backing buffer unavailable",
			"capacity", capacity,
			"off_heap", offHeap,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "backing buffer acquired",
		"capacity", capacity,
		"off_heap", offHeap,
	)
}

// LogRelease logs release of a backing buffer.
func (l *Logger) LogRelease(ctx context.Context, capacity, used, freeBlocks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backing buffer release failed",
			"capacity", capacity,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "backing buffer released",
		"capacity", capacity,
		"used", used,
		"free_blocks", freeBlocks,
	)
}

// LogExhausted logs an allocation request that neither the free list nor the
// buffer tail could satisfy.
func (l *Logger) LogExhausted(ctx context.Context, bytes, alignment uintptr, used, capacity, freeBlocks int) {
	l.DebugContext(ctx, "arena exhausted",
		"bytes", bytes,
		"alignment", alignment,
		"used", used,
		"capacity", capacity,
		"free_blocks", freeBlocks,
	)
}

// LogSnapshot logs a snapshot write or restore.
func (l *Logger) LogSnapshot(ctx context.Context, op string, codec string, used int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"codec", codec,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot completed",
		"op", op,
		"codec", codec,
		"used", used,
	)
}
