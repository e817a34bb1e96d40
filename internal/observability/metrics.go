package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pinfall_import"

// ImportMetrics records service operations and import outcomes.
type ImportMetrics interface {
	RecordOperationAttempt(ctx context.Context, operationName, serviceName string)
	RecordOperationSuccess(ctx context.Context, operationName, serviceName string)
	RecordOperationFailure(ctx context.Context, operationName, serviceName string)
	RecordOperationDuration(ctx context.Context, operationName, serviceName string, duration time.Duration)
	RecordFetch(ctx context.Context, outcome string, duration time.Duration)
	RecordRowsParsed(ctx context.Context, rows int)
	RecordMatchTier(ctx context.Context, tier string, count int)
	RecordResultsSaved(ctx context.Context, count int)
}

// PrometheusMetrics implements ImportMetrics with client_golang collectors.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fetches   *prometheus.HistogramVec
	rows      prometheus.Histogram
	tiers     *prometheus.CounterVec
	saved     prometheus.Counter
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that completed without an infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Service operations that failed.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Results page download latency by outcome.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parsed_rows",
			Help:      "Result rows extracted per parsed document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_candidates_total",
			Help:      "Name resolutions by confidence tier.",
		}, []string{"tier"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_saved_total",
			Help:      "Result records written by commits.",
		}),
	}

	var errs []error
	for _, c := range []prometheus.Collector{m.attempts, m.successes, m.failures, m.duration, m.fetches, m.rows, m.tiers, m.saved} {
		errs = append(errs, reg.Register(c))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operationName, serviceName string) {
	m.attempts.WithLabelValues(operationName, serviceName).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operationName, serviceName string) {
	m.successes.WithLabelValues(operationName, serviceName).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operationName, serviceName string) {
	m.failures.WithLabelValues(operationName, serviceName).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operationName, serviceName string, duration time.Duration) {
	m.duration.WithLabelValues(operationName, serviceName).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordFetch(_ context.Context, outcome string, duration time.Duration) {
	m.fetches.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRowsParsed(_ context.Context, rows int) {
	m.rows.Observe(float64(rows))
}

func (m *PrometheusMetrics) RecordMatchTier(_ context.Context, tier string, count int) {
	m.tiers.WithLabelValues(tier).Add(float64(count))
}

func (m *PrometheusMetrics) RecordResultsSaved(_ context.Context, count int) {
	m.saved.Add(float64(count))
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

// NewNoop returns metrics that record nothing.
func NewNoop() ImportMetrics { return NoopMetrics{} }

func (NoopMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoopMetrics) RecordFetch(context.Context, string, time.Duration)                     {}
func (NoopMetrics) RecordRowsParsed(context.Context, int)                                  {}
func (NoopMetrics) RecordMatchTier(context.Context, string, int)                           {}
func (NoopMetrics) RecordResultsSaved(context.Context, int)                                {}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves the registry in the Prometheus text format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
