package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jsamuelsen/go-exceptions-api/internal/domain"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// Bind errors wrap their cause, so validator.ValidationErrors and
// *http.MaxBytesError stay reachable with errors.As.
var (
	ErrValidation = errors.New("validation failed")
	ErrBinding    = errors.New("binding failed")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Fields are reported by their
// json name so dataset keys match what the client sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)

		_ = validate.RegisterValidation("uuid", isUUID)
		_ = validate.RegisterValidation("notempty", notBlank)
	})

	return validate
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	default:
		return name
	}
}

// Validate runs the struct rules of v.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bindAndValidate(c.ShouldBindJSON, v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return bindAndValidate(c.ShouldBindQuery, v)
}

func bindAndValidate(bind func(any) error, v any) error {
	if err := bind(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// FailureData returns the dataset shown to clients for err. A dataset the
// failure carries wins. Otherwise validator field errors and a field-scoped
// *domain.ValidationError are converted, keyed by field name.
func FailureData(err error) exceptions.Data {
	if data := exceptions.DataOf(err); data.Len() > 0 {
		return data
	}

	var (
		data      exceptions.Data
		fieldErrs validator.ValidationErrors
		domainErr *domain.ValidationError
	)

	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			data = data.Add(fe.Field(), fieldMessage(fe))
		}
	case errors.As(err, &domainErr) && domainErr.Field != "":
		data = data.Add(domainErr.Field, domainErr.Message)
	}

	return data
}

// fieldMessage renders one failed rule for clients, e.g.
// "must be at least 2 characters".
func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "notempty":
		return "must not be empty"
	case "min":
		return "must be at least " + param + unit(fe.Kind())
	case "max":
		return "must be at most " + param + unit(fe.Kind())
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "failed validation: " + fe.Tag()
	}
}

// unit qualifies min and max bounds; they count characters on strings.
func unit(kind reflect.Kind) string {
	if kind == reflect.String {
		return " characters"
	}

	return ""
}

// isUUID accepts an empty string; pair it with required when needed.
func isUUID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	return uuid.Validate(value) == nil
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
