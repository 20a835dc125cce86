package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
)

// internalPrefix marks health and metrics routes, which are never logged.
const internalPrefix = "/-/"

// RequestLogger stores logger in the request context so later stages
// enrich it rather than the process default. A nil logger is a no-op.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger != nil {
			c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		}

		c.Next()
	}
}

// Logging returns middleware that writes a "request started" line and a
// "request completed" line per request. The completion level follows the
// final status: ERROR for 5xx, WARN for 4xx, INFO otherwise.
//
// Install it outside Exceptions so completion lines carry the status of
// problem responses. Paths under /-/ are skipped.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return LoggingWithSkipPaths(logger, nil)
}

// LoggingWithSkipPaths is Logging with extra exact paths to skip.
func LoggingWithSkipPaths(logger *slog.Logger, skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok || strings.HasPrefix(path, internalPrefix) {
			c.Next()
			return
		}

		start := time.Now()
		target := dto.InstanceOf(c.Request.URL)
		ctxLogger := requestLogger(c, logger)

		ctxLogger.Info("request started",
			slog.String("method", c.Request.Method),
			slog.String("path", target),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		ctxLogger.Log(c.Request.Context(), statusLevel(status), "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", target),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int64("latency_ms", latency.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// requestLogger returns the context logger, or fallback when the context
// carries none.
func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := logging.Lookup(c.Request.Context()); ok {
		return logger
	}

	if fallback != nil {
		return fallback
	}

	return logging.FromContext(c.Request.Context())
}
