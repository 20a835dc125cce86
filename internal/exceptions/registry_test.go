package exceptions

import (
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Register(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	AddStatus[*randomError](b, http.StatusConflict)
	AddStatusMessage[quotaError](b, http.StatusTooManyRequests, "slow down")

	registry, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	cfg, ok := registry.Lookup(reflect.TypeFor[*randomError]())
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, cfg.StatusCode)
	assert.Empty(t, cfg.Message)
	assert.Nil(t, cfg.Resolver)

	cfg, ok = registry.LookupError(quotaError{})
	require.True(t, ok)
	assert.Equal(t, "slow down", cfg.Message)

	_, ok = registry.LookupError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = registry.LookupError(nil)
	assert.False(t, ok)
}

func TestBuilder_BuildErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(*Builder)
		wantErr error
	}{
		{
			name: "interface type",
			setup: func(b *Builder) {
				AddStatus[error](b, http.StatusBadRequest)
			},
			wantErr: ErrInterfaceType,
		},
		{
			name: "nil type",
			setup: func(b *Builder) {
				b.Register(nil, Config{StatusCode: http.StatusBadRequest})
			},
			wantErr: ErrInterfaceType,
		},
		{
			name: "status out of range",
			setup: func(b *Builder) {
				AddStatus[*randomError](b, 42)
			},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "nil resolver",
			setup: func(b *Builder) {
				AddResolver[*randomError](b, nil)
			},
			wantErr: ErrNilResolver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := NewBuilder()
			tt.setup(b)

			registry, err := b.Build()
			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, registry)
			assert.Panics(t, func() { b.MustBuild() })
		})
	}
}

func TestBuilder_BuildSnapshots(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	AddStatus[*randomError](b, http.StatusConflict)

	registry := b.MustBuild()

	// Registrations after Build do not leak into the frozen registry.
	AddStatus[*randomError](b, http.StatusGone)
	AddStatus[quotaError](b, http.StatusGone)

	cfg, ok := registry.LookupError(&randomError{})
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, cfg.StatusCode)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_NilAndEmpty(t *testing.T) {
	t.Parallel()

	var nilRegistry *Registry
	_, ok := nilRegistry.LookupError(&randomError{})
	assert.False(t, ok)
	assert.Equal(t, 0, nilRegistry.Len())

	assert.Equal(t, 0, EmptyRegistry().Len())
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	AddStatus[*randomError](b, http.StatusConflict)
	c := NewClassifier(b.MustBuild(), DefaultDefaults())

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				cls, err := c.Classify(newRequest(), &randomError{})
				assert.NoError(t, err)
				assert.Equal(t, http.StatusConflict, cls.StatusCode)
			}
		}()
	}

	wg.Wait()
}
