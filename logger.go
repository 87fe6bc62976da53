package lexivec

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with consistent field names for the search
// demo's operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler
// falls back to a text handler on stderr at info level.
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

// NewTextLogger creates a Logger that writes human-readable text logs
// to stderr.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000),
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogBuild logs completion of an index build.
func (l *Logger) LogBuild(ctx context.Context, inserted int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"inserted", inserted,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		rate := 0.0
		if elapsed > 0 {
			rate = float64(inserted) / elapsed.Seconds()
		}
		l.InfoContext(ctx, "index build completed",
			"inserted", inserted,
			"elapsed", elapsed,
			"items_per_sec", int(rate),
		)
	}
}

// LogEvaluation logs one recall evaluation.
func (l *Logger) LogEvaluation(ctx context.Context, ev *Evaluation) {
	l.DebugContext(ctx, "query evaluated",
		"word", ev.Word,
		"k", ev.K,
		"recall", ev.Recall,
		"approx_latency", ev.ApproxLatency,
		"exact_latency", ev.ExactLatency,
	)
}
