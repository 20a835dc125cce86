package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// Recovery returns middleware that recovers from panics.
// On panic, it:
//   - Logs the error with full stack trace at ERROR level
//   - Returns a 500 problem body with the default message
//
// Exceptions handles ordinary failures itself; what reaches Recovery is a
// failing resolver or a bug in later middleware. Apply it first in the
// chain.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			if r == http.ErrAbortHandler { //nolint:errorlint // sentinel compared as a panic value
				panic(r)
			}

			stack := debug.Stack()

			// The context logger already carries the request IDs.
			requestLogger(c, logger).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(stack)),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
			)

			// Ensure headers haven't been sent yet
			if c.Writer.Written() {
				c.Abort()
				return
			}

			problem := dto.NewProblem(
				exceptions.Response{StatusCode: http.StatusInternalServerError, Message: exceptions.DefaultMessage},
				exceptions.FromPanic(r),
				nil,
				c.Request.URL,
			)

			body, err := dto.MarshalProblem(problem)
			if err != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}

			c.Data(http.StatusInternalServerError, dto.ContentType, body)
			c.Abort()
		}()

		c.Next()
	}
}
