package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder counts classified failures for the /-/metrics scrape
// endpoint. Labels stay bounded: the numeric status, the failure's simple type
// name and the matched route template.
type PrometheusRecorder struct {
	failures *prometheus.CounterVec
}

// NewPrometheusRecorder creates the exceptions_failures_total counter and
// registers it with reg. When an identical counter is already registered it
// is reused, so repeated construction against the default registry is safe.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exceptions",
			Name:      "failures_total",
			Help:      "Unhandled request failures answered with a problem body.",
		},
		[]string{"status", "type", "path"},
	)

	if err := reg.Register(failures); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("registering failure counter: %w", err)
		}

		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("registering failure counter: %w", err)
		}

		failures = existing
	}

	return &PrometheusRecorder{failures: failures}, nil
}

// RecordFailure counts one classified failure. An unmatched route is
// labelled "unmatched".
func (r *PrometheusRecorder) RecordFailure(_ context.Context, status int, failureType, route string) {
	if route == "" {
		route = "unmatched"
	}

	r.failures.WithLabelValues(strconv.Itoa(status), failureType, route).Inc()
}

// Failures returns the underlying counter, mainly for tests.
func (r *PrometheusRecorder) Failures() *prometheus.CounterVec {
	return r.failures
}
