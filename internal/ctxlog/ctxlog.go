// Package ctxlog carries the application slog.Logger through
// context.Context, scoped to the graph being worked on.
package ctxlog

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default when there
// is none so packages used as a library still log somewhere.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithGraph scopes the logger of ctx to one graph. Every record logged
// through the returned context or logger carries the graph name, and its id
// when known.
func WithGraph(ctx context.Context, id, name string) (context.Context, *slog.Logger) {
	args := []any{"graph", name}
	if id != "" {
		args = append(args, "graph_id", id)
	}
	logger := FromContext(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}
