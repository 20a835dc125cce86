package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Attribute keys stamped on request-scoped loggers.
const (
	RequestIDKey     = "request_id"
	TraceIDKey       = "trace_id"
	CorrelationIDKey = "correlation_id"
)

var defaultLogger = slog.Default()

// FromContext returns the request-scoped logger, or the process default when
// ctx is nil or carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := Lookup(ctx); ok {
		return logger
	}

	return defaultLogger
}

// Lookup returns the logger stored in ctx, if any.
func Lookup(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	logger, ok := ctx.Value(ctxKey{}).(*slog.Logger)

	return logger, ok
}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithAttrs derives the context logger with extra attributes.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithRequestID stamps request_id on the context logger.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithAttrs(ctx, slog.String(RequestIDKey, requestID))
}

// WithTraceID stamps trace_id on the context logger.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return WithAttrs(ctx, slog.String(TraceIDKey, traceID))
}

// WithCorrelationID stamps correlation_id on the context logger.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return WithAttrs(ctx, slog.String(CorrelationIDKey, correlationID))
}

// SetDefault sets the fallback logger for contexts without one and installs
// it as the slog default.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
