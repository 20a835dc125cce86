package exceptions

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
)

// Process-wide defaults.
const (
	// DefaultMessage is shown to clients for failures that are not
	// registered and do not describe themselves.
	DefaultMessage = "An internal error has occurred"

	// DefaultStatusCode is used for failures that are not registered and
	// do not describe themselves.
	DefaultStatusCode = http.StatusInternalServerError
)

// Defaults are the fallback status and message for generic failures.
type Defaults struct {
	StatusCode int
	Message    string
}

// DefaultDefaults returns the process-wide defaults.
func DefaultDefaults() Defaults {
	return Defaults{StatusCode: DefaultStatusCode, Message: DefaultMessage}
}

// normalize fills unset fields with the process-wide defaults.
func (d Defaults) normalize() Defaults {
	if !validStatus(d.StatusCode) {
		d.StatusCode = DefaultStatusCode
	}

	if d.Message == "" {
		d.Message = DefaultMessage
	}

	return d
}

// Path identifies which classification rule produced a Response.
type Path int

const (
	// PathUnregistered means no registration matched and Defaults were used.
	PathUnregistered Path = iota
	// PathSelfDescribing means the failure supplied its own status.
	PathSelfDescribing
	// PathResolver means a registered Resolver produced the response.
	PathResolver
	// PathStatusMessage means a registered status and message were used.
	PathStatusMessage
	// PathStatus means a registered status was paired with the default message.
	PathStatus
)

// String returns the path name used in logs and metrics.
func (p Path) String() string {
	switch p {
	case PathSelfDescribing:
		return "self_describing"
	case PathResolver:
		return "resolver"
	case PathStatusMessage:
		return "status_message"
	case PathStatus:
		return "status"
	default:
		return "unregistered"
	}
}

// Classification is the outcome of classifying one failure.
type Classification struct {
	Response

	// Failure is the error the response describes. On the self-describing
	// path this is the StatusCoder found in the chain, otherwise the
	// failure as received.
	Failure error

	// Path is the rule that produced Response.
	Path Path
}

// ResolverError reports a registered Resolver that panicked or returned an
// unusable response. It is a configuration bug, not a request failure.
type ResolverError struct {
	FailureType reflect.Type
	Failure     error
	Value       any
	Stack       []byte
}

// Error implements the error interface.
func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver for %v failed: %v", e.FailureType, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ResolverError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// Classifier resolves failures against a Registry and Defaults. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	registry *Registry
	defaults Defaults
}

// NewClassifier creates a Classifier. A nil registry behaves as empty.
func NewClassifier(registry *Registry, defaults Defaults) *Classifier {
	if registry == nil {
		registry = EmptyRegistry()
	}

	return &Classifier{registry: registry, defaults: defaults.normalize()}
}

// Defaults returns the defaults used for generic failures.
func (c *Classifier) Defaults() Defaults {
	return c.defaults
}

// Classify resolves the status code and client message for err.
// The only error it returns is a *ResolverError.
func (c *Classifier) Classify(r *http.Request, err error) (Classification, error) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return c.selfDescribing(sc), nil
	}

	cfg, ok := c.registry.LookupError(err)
	if !ok {
		return c.Fallback(err), nil
	}

	switch {
	case cfg.Resolver != nil:
		return c.resolve(r, err, cfg.Resolver)

	case cfg.StatusCode != 0 && cfg.Message != "":
		return Classification{
			Response: Response{StatusCode: cfg.StatusCode, Message: cfg.Message},
			Failure:  err,
			Path:     PathStatusMessage,
		}, nil

	case cfg.StatusCode != 0:
		return Classification{
			Response: Response{StatusCode: cfg.StatusCode, Message: c.defaults.Message},
			Failure:  err,
			Path:     PathStatus,
		}, nil

	default:
		return c.Fallback(err), nil
	}
}

// Fallback classifies err with the defaults, ignoring any registration.
// Callers use it as the explicit last resort after a *ResolverError.
func (c *Classifier) Fallback(err error) Classification {
	return Classification{
		Response: Response{StatusCode: c.defaults.StatusCode, Message: c.defaults.Message},
		Failure:  err,
		Path:     PathUnregistered,
	}
}

func (c *Classifier) selfDescribing(sc StatusCoder) Classification {
	status := sc.StatusCode()
	// Codes outside this range cannot be written on the wire.
	if status < 100 || status > 999 {
		status = c.defaults.StatusCode
	}

	msg := sc.Error()
	if cm, ok := sc.(ClientMessager); ok && cm.ClientMessage() != "" {
		msg = cm.ClientMessage()
	}

	return Classification{
		Response: Response{StatusCode: status, Message: msg},
		Failure:  sc,
		Path:     PathSelfDescribing,
	}
}

func (c *Classifier) resolve(r *http.Request, err error, fn Resolver) (cls Classification, resErr error) {
	defer func() {
		if v := recover(); v != nil {
			resErr = &ResolverError{
				FailureType: reflect.TypeOf(err),
				Failure:     err,
				Value:       v,
				Stack:       debug.Stack(),
			}
		}
	}()

	resp := fn(r, err)
	if !validStatus(resp.StatusCode) {
		return Classification{}, &ResolverError{
			FailureType: reflect.TypeOf(err),
			Failure:     err,
			Value:       fmt.Errorf("%w: %d", ErrInvalidStatus, resp.StatusCode),
		}
	}

	return Classification{Response: resp, Failure: err, Path: PathResolver}, nil
}
