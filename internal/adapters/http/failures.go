package http

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/go-exceptions-api/internal/domain"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// Client messages for registered domain failures.
const (
	ValidationMessage  = "One or more validation errors occurred"
	ConflictMessage    = "The request conflicts with the current state of the resource"
	UnavailableMessage = "A required service is temporarily unavailable"
	TooLargeMessage    = "The request body is too large"
)

// RegisterDomainFailures registers how domain failures, validator field
// errors and oversized bodies are answered. Unregistered failures get the
// classifier defaults.
func RegisterDomainFailures(b *exceptions.Builder) *exceptions.Builder {
	exceptions.AddStatus[*domain.RandomError](b, http.StatusMultipleChoices)

	exceptions.AddResolver(b, func(_ *http.Request, err *domain.NotFoundError) exceptions.Response {
		return exceptions.Response{StatusCode: http.StatusNotFound, Message: err.Error()}
	})

	exceptions.AddStatusMessage[*domain.ConflictError](b, http.StatusConflict, ConflictMessage)

	exceptions.AddResolver(b, func(_ *http.Request, err *domain.ValidationError) exceptions.Response {
		// Field errors are listed in the body; a whole-input rule is the detail.
		msg := ValidationMessage
		if err.Field == "" {
			msg = err.Message
		}

		return exceptions.Response{StatusCode: http.StatusBadRequest, Message: msg}
	})

	exceptions.AddStatusMessage[validator.ValidationErrors](b, http.StatusBadRequest, ValidationMessage)
	exceptions.AddStatusMessage[*http.MaxBytesError](b, http.StatusRequestEntityTooLarge, TooLargeMessage)

	exceptions.AddResolver(b, func(_ *http.Request, err *domain.UnavailableError) exceptions.Response {
		msg := UnavailableMessage
		if err.RetryAfter > 0 {
			msg = fmt.Sprintf("%s, retry after %s", msg, err.RetryAfter)
		}

		return exceptions.Response{StatusCode: http.StatusServiceUnavailable, Message: msg}
	})

	return b
}
