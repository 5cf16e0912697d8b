package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/salescope/salescope/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds the process-wide logger. Every record carries the
// service name, config profile, and warehouse engine.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("engine", cfg.Database.Engine),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
