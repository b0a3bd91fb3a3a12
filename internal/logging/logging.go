// Package logging builds the process logger: a stdout handler (tint or JSON)
// optionally fanned out to Fluent Bit, plus helpers that carry a
// request-scoped logger in a context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"

	"github.com/reshamsu/dlink-colombo/internal/config"
)

// New returns the logger described by cfg and a close func for its sinks.
// A Fluent Bit connection failure is reported on stdout and the logger keeps
// working without that sink.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, func() error) {
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var std slog.Handler
	switch {
	case strings.EqualFold(cfg.Format, "json"):
		std = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource})
	case cfg.Color:
		std = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.AddSource,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		std = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource})
	}

	if !cfg.FluentOn {
		return slog.New(std), func() error { return nil }
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		TagPrefix:  cfg.FluentPrefix,
		Async:      true,
	})
	if err != nil {
		l := slog.New(std)
		l.Warn("fluent sink disabled", "error", err)
		return l, func() error { return nil }
	}
	return slog.New(Fanout(std, NewFluentHandler(client, level))), client.Close
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ctxKey struct{}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
