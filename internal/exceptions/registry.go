package exceptions

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Registration errors.
var (
	// ErrInterfaceType is returned when a registration is keyed by an
	// interface type. Lookups use the dynamic type of a failure, which is
	// never an interface, so such a registration could never match.
	ErrInterfaceType = errors.New("failure type must be a concrete type")

	// ErrInvalidStatus is returned when a registration carries a status
	// outside the 100-599 range.
	ErrInvalidStatus = errors.New("invalid status code")

	// ErrNilResolver is returned when AddResolver is given a nil function.
	ErrNilResolver = errors.New("nil resolver")
)

// Response is the status code and client message resolved for a failure.
type Response struct {
	StatusCode int
	Message    string
}

// Resolver builds a Response for a failure from the request that produced it.
type Resolver func(r *http.Request, err error) Response

// Config is the registered behavior for a single failure type.
// A set Resolver takes precedence over StatusCode and Message.
type Config struct {
	StatusCode int
	Message    string
	Resolver   Resolver
}

// Builder collects registrations during startup. It is not safe for
// concurrent use; call Build once registration is complete.
type Builder struct {
	configs map[reflect.Type]Config
	errs    []error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{configs: make(map[reflect.Type]Config)}
}

// Register stores cfg for failures whose dynamic type is t, replacing any
// earlier registration for t.
func (b *Builder) Register(t reflect.Type, cfg Config) *Builder {
	if t == nil || t.Kind() == reflect.Interface {
		b.errs = append(b.errs, fmt.Errorf("%w: %v", ErrInterfaceType, t))
		return b
	}

	if cfg.Resolver == nil && cfg.StatusCode != 0 && !validStatus(cfg.StatusCode) {
		b.errs = append(b.errs, fmt.Errorf("%w: %d for %v", ErrInvalidStatus, cfg.StatusCode, t))
		return b
	}

	b.configs[t] = cfg

	return b
}

// AddStatus registers a status code for failures of type T. Clients get the
// default message.
func AddStatus[T error](b *Builder, status int) *Builder {
	return b.Register(reflect.TypeFor[T](), Config{StatusCode: status})
}

// AddStatusMessage registers a status code and client message for failures
// of type T.
func AddStatusMessage[T error](b *Builder, status int, message string) *Builder {
	return b.Register(reflect.TypeFor[T](), Config{StatusCode: status, Message: message})
}

// AddResolver registers a function that computes the response for failures
// of type T.
func AddResolver[T error](b *Builder, fn func(r *http.Request, err T) Response) *Builder {
	t := reflect.TypeFor[T]()
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: %v", ErrNilResolver, t))
		return b
	}

	return b.Register(t, Config{
		Resolver: func(r *http.Request, err error) Response {
			return fn(r, err.(T)) //nolint:errcheck,forcetypeassert // lookup guarantees the dynamic type
		},
	})
}

// Build freezes the registrations into a Registry. It reports every invalid
// registration seen so far.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("building failure registry: %w", errors.Join(b.errs...))
	}

	configs := make(map[reflect.Type]Config, len(b.configs))
	for t, cfg := range b.configs {
		configs[t] = cfg
	}

	return &Registry{configs: configs}, nil
}

// MustBuild is Build for static registrations; it panics on error.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}

	return r
}

// Registry is the frozen mapping from failure type to Config. It is never
// mutated after Build, so concurrent lookups need no locking.
type Registry struct {
	configs map[reflect.Type]Config
}

// EmptyRegistry returns a Registry with no registrations.
func EmptyRegistry() *Registry {
	return &Registry{configs: map[reflect.Type]Config{}}
}

// Lookup returns the configuration registered for exactly t.
func (r *Registry) Lookup(t reflect.Type) (Config, bool) {
	if r == nil || t == nil {
		return Config{}, false
	}

	cfg, ok := r.configs[t]

	return cfg, ok
}

// LookupError returns the configuration registered for the dynamic type of
// err. Wrapped errors are not inspected.
func (r *Registry) LookupError(err error) (Config, bool) {
	if err == nil {
		return Config{}, false
	}

	return r.Lookup(reflect.TypeOf(err))
}

// Len returns the number of registered failure types.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.configs)
}

func validStatus(code int) bool {
	return code >= 100 && code <= 599
}
