package exceptions

import (
	"errors"
	"fmt"
)

// StatusCoder is implemented by failures that carry their own HTTP status.
// Such failures are self-describing and bypass the Registry.
type StatusCoder interface {
	error
	StatusCode() int
}

// ClientMessager is implemented by failures that provide a message meant
// for clients. An empty message means "use Error()".
type ClientMessager interface {
	ClientMessage() string
}

// DataCarrier is implemented by failures that carry a structured dataset.
// A non-empty dataset switches the response to the validation shape.
type DataCarrier interface {
	FailureData() Data
}

// Error is the self-describing failure type. Application code returns it
// (or panics with it) when it knows which status the client should get.
type Error struct {
	status        int
	message       string
	clientMessage string
	data          Data
	cause         error
}

// compile-time capability checks
var (
	_ StatusCoder    = (*Error)(nil)
	_ ClientMessager = (*Error)(nil)
	_ DataCarrier    = (*Error)(nil)
)

// Option configures an Error.
type Option func(*Error)

// WithClientMessage sets the message shown to clients instead of Error().
func WithClientMessage(msg string) Option {
	return func(e *Error) {
		e.clientMessage = msg
	}
}

// WithCause wraps an underlying error, exposed through Unwrap.
func WithCause(err error) Option {
	return func(e *Error) {
		e.cause = err
	}
}

// WithData appends a field to the failure's dataset.
func WithData(key string, value any) Option {
	return func(e *Error) {
		e.data = e.data.Add(key, value)
	}
}

// New creates a self-describing failure with the given status and internal
// message.
func New(status int, message string, opts ...Option) *Error {
	e := &Error{status: status, message: message}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Newf is New with a formatted message.
func Newf(status int, format string, args ...any) *Error {
	return New(status, fmt.Sprintf(format, args...))
}

// Error implements the error interface. It returns the internal message.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}

	return e.message
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCode returns the HTTP status the failure asks for.
func (e *Error) StatusCode() int {
	return e.status
}

// ClientMessage returns the client-facing override message, if any.
func (e *Error) ClientMessage() string {
	return e.clientMessage
}

// FailureData returns a copy of the failure's dataset.
func (e *Error) FailureData() Data {
	return e.data.Clone()
}

// WithData returns the same failure with an extra dataset field. It is meant
// for chaining right after New.
func (e *Error) WithData(key string, value any) *Error {
	e.data = e.data.Add(key, value)
	return e
}

// PanicError wraps a non-error value recovered from a panic so it can be
// classified like any other failure.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// FromPanic converts a recovered value into an error. Error values are
// returned unchanged.
func FromPanic(v any) error {
	if err, ok := v.(error); ok {
		return err
	}

	return &PanicError{Value: v}
}

// IsSelfDescribing reports whether err, or any error it wraps, carries its
// own status code.
func IsSelfDescribing(err error) bool {
	var sc StatusCoder
	return errors.As(err, &sc)
}

// DataOf returns the dataset attached to err or to any error it wraps.
func DataOf(err error) Data {
	var dc DataCarrier
	if errors.As(err, &dc) {
		return dc.FailureData()
	}

	return nil
}
