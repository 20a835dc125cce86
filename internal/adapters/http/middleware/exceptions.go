package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
)

// FailureRecorder records classified failures, typically as metrics.
// route is the matched route template, empty when no route matched.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, status int, failureType, route string)
}

// ExceptionsConfig configures the Exceptions middleware.
type ExceptionsConfig struct {
	// Classifier maps failures to responses. Nil means an empty registry
	// with the process-wide defaults.
	Classifier *exceptions.Classifier

	// Correlation selects the correlation header and value function.
	Correlation CorrelationConfig

	// Logger is used when the request context carries no logger yet.
	Logger *slog.Logger

	// Recorders are notified of every classified failure.
	Recorders []FailureRecorder

	// DegradeOnResolverError answers a failing resolver with the generic
	// server error instead of re-panicking into the host's recovery.
	DegradeOnResolverError bool
}

// Exceptions returns middleware that turns unhandled failures into problem
// responses. For every request it:
//   - Resolves the correlation ID and writes it to the response header
//   - Adds the correlation ID to the context logger
//   - Runs the rest of the chain, recovering panics
//
// A failure is a recovered panic or, when nothing has been written, the last
// error attached with c.Error. Failures are classified, logged at ERROR and
// answered with an application/json problem body. A failure after the
// response has started is logged and the chain aborted without a body.
//
// Install it after Logging and request metrics so they see the problem
// status. A CorrelationID stage earlier in the chain with the same config
// stamps the header first; Exceptions then reuses that value.
func Exceptions(cfg ExceptionsConfig) gin.HandlerFunc {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = exceptions.NewClassifier(nil, exceptions.DefaultDefaults())
	}

	idCfg := cfg.Correlation.idConfig()

	return func(c *gin.Context) {
		if cfg.Logger != nil {
			if _, ok := logging.Lookup(c.Request.Context()); !ok {
				c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), cfg.Logger))
			}
		}

		stampID(c, idCfg)

		failure, stack := invoke(c)
		if failure == nil {
			return
		}

		h := failureHandler{cfg: &cfg, classifier: classifier}
		h.handle(c, failure, stack)
	}
}

// invoke runs the rest of the chain and returns the failure it produced.
// stack is only set for panics.
func invoke(c *gin.Context) (failure error, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			// net/http uses this sentinel to abort a response silently.
			if r == http.ErrAbortHandler { //nolint:errorlint // sentinel compared as a panic value
				panic(r)
			}

			failure = exceptions.FromPanic(r)
			stack = debug.Stack()
		}
	}()

	c.Next()

	if c.Writer.Written() {
		return nil, nil
	}

	if last := c.Errors.Last(); last != nil {
		return last.Err, nil
	}

	return nil, nil
}

type failureHandler struct {
	cfg        *ExceptionsConfig
	classifier *exceptions.Classifier
}

func (h failureHandler) handle(c *gin.Context, failure error, stack []byte) {
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)

	cls, err := h.classifier.Classify(c.Request, failure)
	if err != nil {
		var resErr *exceptions.ResolverError
		if !h.cfg.DegradeOnResolverError || !errors.As(err, &resErr) {
			panic(err)
		}

		logger.Error("failure resolver failed",
			slog.Any("error", err),
			slog.String("stack", string(resErr.Stack)),
		)

		cls = h.classifier.Fallback(failure)
	}

	title := exceptions.Title(cls.StatusCode)
	failureType := dto.FailureTypeName(cls.Failure)

	attrs := []any{
		slog.Int("status", cls.StatusCode),
		slog.String("title", title),
		slog.String("error", failure.Error()),
		slog.String("failure_type", failureType),
		slog.String("classification", cls.Path.String()),
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
	}
	if stack != nil {
		attrs = append(attrs, slog.String("stack", string(stack)))
	}

	for _, r := range h.cfg.Recorders {
		r.RecordFailure(ctx, cls.StatusCode, failureType, c.FullPath())
	}

	if c.Writer.Written() {
		logger.Error("request failed after response started", attrs...)
		c.Abort()

		return
	}

	logger.Error("request failed", attrs...)

	problem := dto.NewProblem(cls.Response, cls.Failure, dto.FailureData(failure), c.Request.URL)

	body, err := dto.MarshalProblem(problem)
	if err != nil {
		logger.Error("encoding problem body", slog.Any("error", err))
		c.AbortWithStatus(cls.StatusCode)

		return
	}

	c.Data(cls.StatusCode, dto.ContentType, body)
	c.Abort()
}
