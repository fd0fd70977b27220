package gosom

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with gosom-specific context.
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

// WithLattice adds rows and cols fields to the logger.
func (l *Logger) WithLattice(rows, cols int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rows", rows, "cols", cols),
	}
}

// WithEpochs adds an epochs field to the logger.
func (l *Logger) WithEpochs(epochs int) *Logger {
	return &Logger{
		Logger: l.Logger.With("epochs", epochs),
	}
}

// WithSamples adds a samples field to the logger.
func (l *Logger) WithSamples(samples int) *Logger {
	return &Logger{
		Logger: l.Logger.With("samples", samples),
	}
}

// WithDimension adds a feature dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogFit logs a completed fit operation.
func (l *Logger) LogFit(ctx context.Context, samples, features int, inertia float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"samples", samples,
			"features", features,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "fit completed",
			"samples", samples,
			"features", features,
			"inertia", inertia,
		)
	}
}

// LogEpoch logs a completed training epoch.
func (l *Logger) LogEpoch(ctx context.Context, epoch, total int) {
	l.DebugContext(ctx, "epoch completed",
		"epoch", epoch,
		"total", total,
	)
}

// LogDegenerateNeuron logs a neuron whose weight update collapsed to a
// zero denominator.
func (l *Logger) LogDegenerateNeuron(ctx context.Context, epoch, neuron int) {
	l.WarnContext(ctx, "degenerate neuron: zero kernel weight across all samples",
		"epoch", epoch,
		"neuron", neuron,
	)
}

// LogAssign logs an assignment operation.
func (l *Logger) LogAssign(ctx context.Context, samples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "assign failed",
			"samples", samples,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "assign completed",
			"samples", samples,
		)
	}
}

// LogSnapshot logs a model snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, filename string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"filename", filename,
		)
	}
}
