package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

type randomError struct{}

func (*randomError) Error() string { return "random failure with internal details" }

type lookupError struct{ key string }

func (e *lookupError) Error() string { return "lookup " + e.key }

type recordedFailure struct {
	status      int
	failureType string
	route       string
}

type fakeRecorder struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (f *fakeRecorder) RecordFailure(_ context.Context, status int, failureType, route string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = append(f.failures, recordedFailure{status: status, failureType: failureType, route: route})
}

func testClassifier(t *testing.T) *exceptions.Classifier {
	t.Helper()

	b := exceptions.NewBuilder()
	exceptions.AddStatus[*randomError](b, http.StatusMultipleChoices)
	exceptions.AddResolver(b, func(r *http.Request, err *lookupError) exceptions.Response {
		if err.key == "panic" {
			panic("resolver bug")
		}

		return exceptions.Response{StatusCode: http.StatusNotFound, Message: "no " + err.key + " at " + r.URL.Path}
	})

	registry, err := b.Build()
	require.NoError(t, err)

	return exceptions.NewClassifier(registry, exceptions.DefaultDefaults())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

// TestExceptions tests failure handling end to end through gin.
func TestExceptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    gin.HandlerFunc
		target     string
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "registered generic failure",
			handler:    func(*gin.Context) { panic(&randomError{}) },
			target:     "/x?a=1&b=2",
			wantStatus: http.StatusMultipleChoices,
			wantBody: map[string]any{
				"type":     "randomError",
				"title":    "MultipleChoices",
				"status":   float64(http.StatusMultipleChoices),
				"detail":   exceptions.DefaultMessage,
				"instance": "/x?a=1&b=2",
			},
		},
		{
			name:       "unregistered failure never leaks its message",
			handler:    func(*gin.Context) { panic(errors.New("db password rejected")) },
			target:     "/x",
			wantStatus: http.StatusInternalServerError,
			wantBody: map[string]any{
				"type":     "errorString",
				"title":    "InternalServerError",
				"status":   float64(http.StatusInternalServerError),
				"detail":   exceptions.DefaultMessage,
				"instance": "/x",
			},
		},
		{
			name:       "non-error panic value",
			handler:    func(*gin.Context) { panic(42) },
			target:     "/x",
			wantStatus: http.StatusInternalServerError,
			wantBody: map[string]any{
				"type":     "PanicError",
				"title":    "InternalServerError",
				"status":   float64(http.StatusInternalServerError),
				"detail":   exceptions.DefaultMessage,
				"instance": "/x",
			},
		},
		{
			name: "self-describing failure with client message",
			handler: func(*gin.Context) {
				panic(exceptions.New(http.StatusConflict, "row 12 locked", exceptions.WithClientMessage("try again")))
			},
			target:     "/x",
			wantStatus: http.StatusConflict,
			wantBody: map[string]any{
				"type":     "Error",
				"title":    "Conflict",
				"status":   float64(http.StatusConflict),
				"detail":   "try again",
				"instance": "/x",
			},
		},
		{
			name: "error attached with c.Error",
			handler: func(c *gin.Context) {
				_ = c.Error(&lookupError{key: "user"})
			},
			target:     "/users/7",
			wantStatus: http.StatusNotFound,
			wantBody: map[string]any{
				"type":     "lookupError",
				"title":    "NotFound",
				"status":   float64(http.StatusNotFound),
				"detail":   "no user at /users/7",
				"instance": "/users/7",
			},
		},
		{
			name: "dataset selects the validation shape",
			handler: func(*gin.Context) {
				panic(exceptions.New(http.StatusBadRequest, "invalid").
					WithData("f1", "v1").
					WithData("f2", "v2"))
			},
			target:     "/x",
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]any{
				"type":     "Error",
				"title":    "BadRequest",
				"status":   float64(http.StatusBadRequest),
				"detail":   "invalid",
				"instance": "/x",
				"errors": map[string]any{
					"f1": []any{"v1"},
					"f2": []any{"v2"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(Exceptions(ExceptionsConfig{Classifier: testClassifier(t), Logger: discardLogger()}))
			router.GET(strings.SplitN(tt.target, "?", 2)[0], tt.handler)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
			assert.Equal(t, tt.wantBody, decodeProblem(t, w))
		})
	}
}

// TestExceptions_Success tests that successful responses are untouched.
func TestExceptions_Success(t *testing.T) {
	t.Parallel()

	var ctxCorrelation string

	router := gin.New()
	router.Use(Exceptions(ExceptionsConfig{Logger: discardLogger()}))
	router.GET("/ok", func(c *gin.Context) {
		ctxCorrelation = CorrelationIDFromContext(c.Request.Context())
		c.String(http.StatusOK, "fine")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())

	header := w.Header().Get(HeaderCorrelationID)
	_, err := uuid.Parse(header)
	require.NoError(t, err)
	assert.Equal(t, header, ctxCorrelation)
}

// TestExceptions_Correlation tests correlation header resolution.
func TestExceptions_Correlation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		correlation CorrelationConfig
		reqHeaders  map[string]string
		wantHeader  string
		wantValue   string
	}{
		{
			name:       "incoming value is echoed on failure",
			reqHeaders: map[string]string{"X-Correlation-Id": "abc"},
			wantHeader: "X-Correlation-Id",
			wantValue:  "abc",
		},
		{
			name:        "value function used when header missing",
			correlation: CorrelationConfig{Value: func(*http.Request) string { return "from-fn" }},
			wantHeader:  "X-Correlation-Id",
			wantValue:   "from-fn",
		},
		{
			name:        "configured key",
			correlation: CorrelationConfig{Key: "X-Flow-Id"},
			reqHeaders:  map[string]string{"X-Flow-Id": "flow-1"},
			wantHeader:  "X-Flow-Id",
			wantValue:   "flow-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(Exceptions(ExceptionsConfig{Correlation: tt.correlation, Logger: discardLogger()}))
			router.GET("/x", func(*gin.Context) { panic(errors.New("boom")) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.reqHeaders {
				req.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.wantValue, w.Header().Get(tt.wantHeader))
		})
	}
}

// TestExceptions_ResponseStarted tests failures after the handler wrote.
func TestExceptions_ResponseStarted(t *testing.T) {
	t.Parallel()

	t.Run("panic after write keeps the partial response", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Exceptions(ExceptionsConfig{Logger: discardLogger()}))
		router.GET("/stream", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic(errors.New("late failure"))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})

	t.Run("error with written response is left to the handler", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Exceptions(ExceptionsConfig{Logger: discardLogger()}))
		router.GET("/bind", func(c *gin.Context) {
			_ = c.AbortWithError(http.StatusUnprocessableEntity, errors.New("bad body"))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bind", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

// TestExceptions_ResolverError tests resolver failures.
func TestExceptions_ResolverError(t *testing.T) {
	t.Parallel()

	handler := func(*gin.Context) { panic(&lookupError{key: "panic"}) }

	t.Run("propagates to the host", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Exceptions(ExceptionsConfig{Classifier: testClassifier(t), Logger: discardLogger()}))
		router.GET("/x", handler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)

		defer func() {
			r := recover()
			require.NotNil(t, r)

			err, ok := r.(error)
			require.True(t, ok)

			var resErr *exceptions.ResolverError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, "resolver bug", resErr.Value)
		}()

		router.ServeHTTP(w, req)
	})

	t.Run("host recovery answers with 500", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(
			Recovery(discardLogger()),
			Exceptions(ExceptionsConfig{Classifier: testClassifier(t), Logger: discardLogger()}),
		)
		router.GET("/x", handler)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeProblem(t, w)
		assert.Equal(t, "ResolverError", body["type"])
		assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
	})

	t.Run("degraded mode uses the fallback", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Exceptions(ExceptionsConfig{
			Classifier:             testClassifier(t),
			Logger:                 discardLogger(),
			DegradeOnResolverError: true,
		}))
		router.GET("/x", handler)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeProblem(t, w)
		assert.Equal(t, exceptions.DefaultMessage, body["detail"])
		assert.Equal(t, "lookupError", body["type"])
	})
}

// TestExceptions_AbortHandler tests that the net/http abort sentinel passes through.
func TestExceptions_AbortHandler(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(Exceptions(ExceptionsConfig{Logger: discardLogger()}))
	router.GET("/x", func(*gin.Context) { panic(http.ErrAbortHandler) })

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	})
}

// TestExceptions_Logging tests the failure log line.
func TestExceptions_Logging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(Exceptions(ExceptionsConfig{Classifier: testClassifier(t), Logger: logger}))
	router.GET("/x", func(*gin.Context) { panic(&randomError{}) })

	req := httptest.NewRequest(http.MethodGet, "/x?q=1", nil)
	req.Header.Set(HeaderCorrelationID, "corr-log")

	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, float64(http.StatusMultipleChoices), entry["status"])
	assert.Equal(t, "MultipleChoices", entry["title"])
	assert.Equal(t, "random failure with internal details", entry["error"])
	assert.Equal(t, "randomError", entry["failure_type"])
	assert.Equal(t, "status", entry["classification"])
	assert.Equal(t, "/x", entry["path"])
	assert.Equal(t, http.MethodGet, entry["method"])
	assert.Equal(t, "corr-log", entry["correlation_id"])
	assert.NotEmpty(t, entry["stack"])
}

// TestExceptions_Recorders tests that recorders see each failure.
func TestExceptions_Recorders(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{}

	router := gin.New()
	router.Use(Exceptions(ExceptionsConfig{
		Classifier: testClassifier(t),
		Logger:     discardLogger(),
		Recorders:  []FailureRecorder{recorder},
	}))
	router.GET("/items/:id", func(*gin.Context) { panic(&randomError{}) })
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	require.Len(t, recorder.failures, 1)
	assert.Equal(t, recordedFailure{
		status:      http.StatusMultipleChoices,
		failureType: "randomError",
		route:       "/items/:id",
	}, recorder.failures[0])
}

// TestExceptions_ValidatorFailure tests that validator errors become a dataset.
func TestExceptions_ValidatorFailure(t *testing.T) {
	t.Parallel()

	type input struct {
		Name string `json:"name" validate:"required"`
	}

	b := exceptions.NewBuilder()
	exceptions.AddStatusMessage[*wrappedValidation](b, http.StatusBadRequest, "request is invalid")
	classifier := exceptions.NewClassifier(b.MustBuild(), exceptions.DefaultDefaults())

	router := gin.New()
	router.Use(Exceptions(ExceptionsConfig{Classifier: classifier, Logger: discardLogger()}))
	router.GET("/x", func(c *gin.Context) {
		err := dto.Validator().Struct(input{})
		_ = c.Error(&wrappedValidation{err: err})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "request is invalid", body["detail"])
	assert.Equal(t, map[string]any{"name": []any{"this field is required"}}, body["errors"])
}

type wrappedValidation struct{ err error }

func (e *wrappedValidation) Error() string { return "validation: " + e.err.Error() }
func (e *wrappedValidation) Unwrap() error { return e.err }
