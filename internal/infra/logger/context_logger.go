package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Business context keys propagated through the research pipeline.
	RequestIDKey ContextKey = "nutri.request.id"
	StageKey     ContextKey = "nutri.pipeline.stage"
)

// FromContext returns the base logger enriched with any request fields
// carried on the context.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	logger := base

	var fields []any
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if stage := ctx.Value(StageKey); stage != nil {
		fields = append(fields, string(StageKey), stage)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// WithRequestID adds the request identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithStage marks which pipeline stage the context is flowing through.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}
