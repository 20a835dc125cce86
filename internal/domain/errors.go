// Package domain holds the failures the sample service raises.
// They know nothing about HTTP: the http adapter registers how each one is
// answered, and anything it does not register falls back to the defaults.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Each failure type unwraps to one of these, so callers can test the kind
// with errors.Is while the registry matches the concrete type.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError returns a *NotFoundError as an error.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a write that clashes with existing state.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError returns a *ConflictError as an error.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError reports a rejected input. Field is empty for rules that
// span the whole input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns a *ValidationError as an error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UnavailableError reports a dependency that cannot serve right now.
// RetryAfter is zero when no estimate exists.
type UnavailableError struct {
	Dependency string
	RetryAfter time.Duration
}

func (e *UnavailableError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("%s unavailable", e.Dependency)
	}

	return fmt.Sprintf("%s unavailable, retry after %s", e.Dependency, e.RetryAfter)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// NewUnavailableError returns a *UnavailableError as an error.
func NewUnavailableError(dependency string, retryAfter time.Duration) error {
	return &UnavailableError{Dependency: dependency, RetryAfter: retryAfter}
}

// RandomError is raised by the sample random endpoint. It describes nothing
// about itself, so its response comes entirely from registration.
type RandomError struct {
	Roll int
}

func (e *RandomError) Error() string {
	return fmt.Sprintf("random failure (roll %d)", e.Roll)
}
