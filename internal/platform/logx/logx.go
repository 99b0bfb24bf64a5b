// Package logx provides a structured JSON logger with service-scoped fields.
package logx

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with event-oriented helpers.
type Logger struct {
	slog *slog.Logger
}

// New builds a JSON logger tagged with the service name and environment.
func New(service string, environment string, level string) Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	base := slog.New(handler).With(
		slog.String("service", service),
	)
	if strings.TrimSpace(environment) != "" {
		base = base.With(slog.String("env", strings.TrimSpace(environment)))
	}

	return Logger{slog: base}
}

// Noop returns a logger that discards everything, for tests.
func Noop() Logger {
	return Logger{slog: slog.New(slog.DiscardHandler)}
}

func (l Logger) Info(ctx context.Context, event string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, event, attrs...)
}

func (l Logger) Warn(ctx context.Context, event string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, event, attrs...)
}

func (l Logger) Error(ctx context.Context, event string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, event, attrs...)
}

func (l Logger) Debug(ctx context.Context, event string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, event, attrs...)
}

func (l Logger) log(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	if l.slog == nil {
		return
	}
	l.slog.LogAttrs(ctx, level, event, attrs...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
