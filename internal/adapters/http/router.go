package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/handlers"
	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/middleware"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// ServiceName names the service in traces.
	ServiceName string

	// Exceptions configures failure handling. Its Logger defaults to Logger.
	Exceptions middleware.ExceptionsConfig

	// Metrics records request metrics; nil disables them.
	Metrics *telemetry.Metrics

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	// FailureHandler serves the sample failure endpoints; nil skips them.
	FailureHandler *handlers.FailureHandler
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - safety net for failures Exceptions re-raises
//  2. Request logger - seed the context logger
//  3. OpenTelemetry tracing - trace ID on the context logger
//  4. Request ID - generate/extract request ID
//  5. Correlation ID - resolve and echo the correlation header
//  6. Request metrics and Logging - see the final status of problem responses
//  7. Exceptions - turn failures into problem responses
//
// Route groups:
//   - /-/ (internal): Health endpoints
//   - /api/v1/ (public API): Business endpoints
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	exceptionsCfg := cfg.Exceptions
	if exceptionsCfg.Logger == nil {
		exceptionsCfg.Logger = cfg.Logger
	}

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestLogger(cfg.Logger),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.TraceLogging(),
		middleware.RequestID(),
		middleware.CorrelationID(exceptionsCfg.Correlation),
		telemetry.Middleware(cfg.Metrics),
		middleware.Logging(cfg.Logger),
		middleware.Exceptions(exceptionsCfg),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(engine)
	}

	apiV1 := engine.Group("/api/v1")
	setupAPIRoutes(apiV1, cfg)
}

// setupAPIRoutes registers business API routes.
func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.FailureHandler != nil {
		cfg.FailureHandler.RegisterRoutes(rg)
	}
}

// SetupMinimalRouter sets up a router with failure handling and health
// endpoints only. Useful for testing or lightweight deployments.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Exceptions(middleware.ExceptionsConfig{Logger: logger}),
	)

	if healthHandler != nil {
		healthHandler.RegisterRoutes(engine)
	}
}
