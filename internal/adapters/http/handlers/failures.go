package handlers

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-exceptions-api/internal/domain"
)

const (
	// CustomClientDefaultStatus is used when no statusCode is given.
	CustomClientDefaultStatus = http.StatusConflict

	// CustomClientDefaultMessage is used when no message is given.
	CustomClientDefaultMessage = "No Message Sent"

	diceSides = 6
)

// CustomClientError is a self-describing failure: it carries its own status
// and an optional message meant for clients.
type CustomClientError struct {
	Status  int
	Message string
	Client  string
}

func (e *CustomClientError) Error() string { return e.Message }

// StatusCode returns the status the failure asks to be answered with.
func (e *CustomClientError) StatusCode() int { return e.Status }

// ClientMessage returns the client-facing message, empty when unset.
func (e *CustomClientError) ClientMessage() string { return e.Client }

// FailureHandler exposes endpoints that fail on purpose, one per
// classification path.
type FailureHandler struct {
	roll func() int
}

// NewFailureHandler creates a failure handler.
func NewFailureHandler() *FailureHandler {
	return &FailureHandler{
		roll: func() int { return rand.IntN(diceSides) + 1 }, //nolint:gosec // not security sensitive
	}
}

// Random handles GET /api/v1/failures/random by panicking with a
// *domain.RandomError.
func (h *FailureHandler) Random(_ *gin.Context) {
	panic(&domain.RandomError{Roll: h.roll()})
}

// Custom handles GET /api/v1/failures/custom. The statusCode, message and
// clientMessage query parameters shape the CustomClientError it raises.
func (h *FailureHandler) Custom(c *gin.Context) {
	failure := &CustomClientError{
		Status:  CustomClientDefaultStatus,
		Message: c.DefaultQuery("message", CustomClientDefaultMessage),
		Client:  c.Query("clientMessage"),
	}

	if raw, ok := c.GetQuery("statusCode"); ok {
		status, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(domain.NewValidationError("statusCode", "must be an integer"))
			return
		}

		failure.Status = status
	}

	_ = c.Error(failure)
}

// ValidateInput is what the validate endpoints accept, from the query
// string or a JSON body.
type ValidateInput struct {
	Name  string `form:"name"  json:"name"  validate:"required,min=2"`
	Email string `form:"email" json:"email" validate:"omitempty,email"`
	Age   int    `form:"age"   json:"age"   validate:"omitempty,gte=0,lte=150"`
}

// Validate handles GET /api/v1/failures/validate. A valid query is echoed
// back; field errors are raised as validator.ValidationErrors.
func (h *FailureHandler) Validate(c *gin.Context) {
	var input ValidateInput

	if err := dto.BindQueryAndValidate(c, &input); err != nil {
		_ = c.Error(bindFailure(err, "malformed query string"))
		return
	}

	c.JSON(http.StatusOK, input)
}

// ValidateBody handles POST /api/v1/failures/validate. Besides field
// errors it can raise *http.MaxBytesError when the body exceeds the
// server's request size limit.
func (h *FailureHandler) ValidateBody(c *gin.Context) {
	var input ValidateInput

	if err := dto.BindAndValidate(c, &input); err != nil {
		_ = c.Error(bindFailure(err, "malformed JSON body"))
		return
	}

	c.JSON(http.StatusOK, input)
}

// bindFailure picks the failure to raise for a bind error. Registered
// types are raised unwrapped so the registry matches them exactly.
func bindFailure(err error, malformed string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLarge
	}

	return domain.NewValidationError("", malformed)
}

// NotFound handles GET /api/v1/failures/not-found/:id.
func (h *FailureHandler) NotFound(c *gin.Context) {
	_ = c.Error(domain.NewNotFoundError("user", c.Param("id")))
}

// Unavailable handles GET /api/v1/failures/unavailable.
func (h *FailureHandler) Unavailable(c *gin.Context) {
	_ = c.Error(domain.NewUnavailableError("ledger", 30*time.Second))
}

// RegisterRoutes registers the failure endpoints under rg.
func (h *FailureHandler) RegisterRoutes(rg *gin.RouterGroup) {
	failures := rg.Group("/failures")
	failures.GET("/random", h.Random)
	failures.GET("/custom", h.Custom)
	failures.GET("/validate", h.Validate)
	failures.POST("/validate", h.ValidateBody)
	failures.GET("/not-found/:id", h.NotFound)
	failures.GET("/unavailable", h.Unavailable)
}
