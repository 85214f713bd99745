/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics of migration runs.
type MetricsCollector interface {
	// ObserveRun is called once per run with its status ("applied", "noop" or "failed") and duration.
	ObserveRun(status string, duration time.Duration)
	// AddExecutedEntries is called after a successful run with the number of executed migration files.
	AddExecutedEntries(direction string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRun(string, time.Duration) {}

func (noopMetrics) AddExecutedEntries(string, int) {}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string
	// DurationBuckets is a list of buckets for run duration histogram.
	DurationBuckets []float64
	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// DefaultRunDurationBuckets is the default buckets for the run duration histogram.
var DefaultRunDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

// PrometheusMetrics is a MetricsCollector that exposes metrics of migration runs to Prometheus.
type PrometheusMetrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDuration          *prometheus.HistogramVec
	ExecutedEntriesTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new metrics collector with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new metrics collector with the given options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultRunDurationBuckets
	}
	return &PrometheusMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "migration_runs_total",
			Help:        "Number of migration runs.",
			ConstLabels: opts.ConstLabels,
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "migration_run_duration_seconds",
			Help:        "A histogram of the migration runs duration.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"status"}),
		ExecutedEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "migration_executed_files_total",
			Help:        "Number of executed migration files.",
			ConstLabels: opts.ConstLabels,
		}, []string{"direction"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.RunsTotal, pm.RunDuration, pm.ExecutedEntriesTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RunsTotal)
	prometheus.Unregister(pm.RunDuration)
	prometheus.Unregister(pm.ExecutedEntriesTotal)
}

// ObserveRun implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveRun(status string, duration time.Duration) {
	pm.RunsTotal.WithLabelValues(status).Inc()
	pm.RunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// AddExecutedEntries implements MetricsCollector.
func (pm *PrometheusMetrics) AddExecutedEntries(direction string, n int) {
	pm.ExecutedEntriesTotal.WithLabelValues(direction).Add(float64(n))
}
