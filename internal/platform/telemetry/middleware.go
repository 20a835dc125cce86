package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/go-exceptions-api/telemetry"
)

// Metrics holds HTTP server metrics.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	failureTotal    metric.Int64Counter
}

// NewMetrics creates HTTP server metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates HTTP server metrics on provider.
func NewMetricsWithProvider(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request duration histogram: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active request counter: %w", err)
	}

	failureTotal, err := meter.Int64Counter(
		"http.server.failures",
		metric.WithDescription("Unhandled request failures answered with a problem body"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
		failureTotal:    failureTotal,
	}, nil
}

// RecordFailure counts one classified failure.
func (m *Metrics) RecordFailure(ctx context.Context, status int, failureType, route string) {
	if m == nil {
		return
	}

	m.failureTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("http.status_code", status),
		attribute.String("failure.type", failureType),
		attribute.String("http.route", route),
	))
}

// Middleware returns Gin middleware for request metrics and the X-Trace-ID
// header. A nil metrics only sets the header.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Record active request
		if metrics != nil {
			attrs := []attribute.KeyValue{
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			}

			metrics.activeRequests.Add(c.Request.Context(), 1, metric.WithAttributes(attrs...))
			defer metrics.activeRequests.Add(c.Request.Context(), -1, metric.WithAttributes(attrs...))
		}

		// Set before the handler runs so failure responses carry it too.
		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().HasTraceID() {
			c.Header("X-Trace-ID", span.SpanContext().TraceID().String())
		}

		c.Next()

		if metrics != nil {
			duration := time.Since(start).Seconds()
			attrs := []attribute.KeyValue{
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.Int("http.status_code", c.Writer.Status()),
			}
			metrics.requestDuration.Record(c.Request.Context(), duration, metric.WithAttributes(attrs...))
			metrics.requestTotal.Add(c.Request.Context(), 1, metric.WithAttributes(attrs...))
		}
	}
}

// TracingMiddleware returns the otelgin tracing middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceLogging stamps the request's trace ID on the context logger so
// failure logs can be joined with their spans. Install it after
// TracingMiddleware.
func TraceLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := TraceIDValue(c.Request); id != "" {
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), id))
		}

		c.Next()
	}
}

// TraceIDValue returns the trace ID of the request: the active span's when
// tracing middleware already ran, otherwise the one in the W3C traceparent
// header. It returns "" for untraced requests and is meant
// as a correlation value function.
func TraceIDValue(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.HasTraceID() {
		ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		sc = trace.SpanContextFromContext(ctx)
	}

	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}
