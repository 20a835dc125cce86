// Package middleware holds the gin middleware of the service, from request
// IDs through the exceptions handler that answers every failure.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
)

// Request IDs identify a single request; the header is echoed on the
// response.
const (
	HeaderRequestID     = "X-Request-ID"
	ContextKeyRequestID = "request_id"
)

// RequestID reuses an incoming X-Request-ID or mints a UUID v4, echoes it
// on the response and stamps it on the context logger.
func RequestID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName: HeaderRequestID,
		contextKey: ContextKeyRequestID,
		contextEnrichers: []func(context.Context, string) context.Context{
			ContextWithRequestID,
			logging.WithRequestID,
		},
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}
