package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
)

const (
	// HeaderCorrelationID is the default correlation header. The value
	// follows a transaction across services, unlike the request ID.
	HeaderCorrelationID     = exceptions.DefaultCorrelationKey
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationConfig selects the correlation header and how a missing value
// is derived.
type CorrelationConfig struct {
	// Key is the header name. Empty means HeaderCorrelationID.
	Key string

	// Value derives a correlation value when the request carries none,
	// e.g. from a trace ID. Nil or an empty result means a new UUID.
	Value exceptions.CorrelationValueFunc
}

// HeaderName returns the effective header name.
func (cfg CorrelationConfig) HeaderName() string {
	if cfg.Key == "" {
		return HeaderCorrelationID
	}

	return cfg.Key
}

func (cfg CorrelationConfig) idConfig() idMiddlewareConfig {
	return idMiddlewareConfig{
		headerName: cfg.HeaderName(),
		contextKey: ContextKeyCorrelationID,
		valueFn:    cfg.Value,
		contextEnrichers: []func(ctx context.Context, id string) context.Context{
			ContextWithCorrelationID,
			logging.WithCorrelationID,
		},
	}
}

// CorrelationID resolves the correlation value before the handler runs:
// the configured request header wins, then cfg.Value, then a new UUID v4.
// The value is echoed on the response and stamped on the context logger so
// success responses carry it too. Exceptions performs the same step;
// installing both is harmless.
func CorrelationID(cfg CorrelationConfig) gin.HandlerFunc {
	return createIDMiddleware(cfg.idConfig())
}

// GetCorrelationID returns the correlation ID stored by CorrelationID or
// Exceptions, or "".
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}
