package middleware

import "context"

// idKey keys the IDs this package stores in a context.Context, so code
// without a gin.Context (outbound clients, workers) can still read them.
type idKey int

const (
	requestIDKey idKey = iota
	correlationIDKey
)

func withID(ctx context.Context, key idKey, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key idKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	return idFrom(ctx, requestIDKey)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withID(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID in ctx, or "". Use it
// to forward the correlation header on outbound calls.
func CorrelationIDFromContext(ctx context.Context) string {
	return idFrom(ctx, correlationIDKey)
}
