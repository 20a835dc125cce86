package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// idMiddlewareConfig configures the ID middleware behavior.
type idMiddlewareConfig struct {
	headerName string
	contextKey string
	valueFn    exceptions.CorrelationValueFunc

	// contextEnrichers run in order on the request context.Context.
	contextEnrichers []func(ctx context.Context, id string) context.Context
}

// createIDMiddleware creates middleware that extracts or generates an ID.
// This is a shared implementation for request ID and correlation ID middleware.
func createIDMiddleware(cfg idMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		stampID(c, cfg)
		c.Next()
	}
}

// stampID resolves the ID for the request, writes it to the response header
// and stores it in both contexts. An ID already stored under the same key is
// reused, so stacking middleware for the same header is harmless.
func stampID(c *gin.Context, cfg idMiddlewareConfig) string {
	if id := getIDFromContext(c, cfg.contextKey); id != "" {
		c.Header(cfg.headerName, id)
		return id
	}

	corr := exceptions.ResolveCorrelation(c.Request, c.Writer.Header(), cfg.headerName, cfg.valueFn)

	// Store in gin context for retrieval by handlers
	c.Set(cfg.contextKey, corr.Value)

	ctx := c.Request.Context()
	for _, enrich := range cfg.contextEnrichers {
		ctx = enrich(ctx, corr.Value)
	}

	c.Request = c.Request.WithContext(ctx)

	return corr.Value
}

// getIDFromContext extracts an ID from the gin context by key.
func getIDFromContext(c *gin.Context, key string) string {
	if id, exists := c.Get(key); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}
