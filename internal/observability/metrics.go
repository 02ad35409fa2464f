// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytbatch"

// Item results used as label values.
const (
	ItemSuccess    = "success"
	ItemFailed     = "failed"
	ItemTerminated = "terminated"
)

// Item error types used as label values.
const (
	ErrorTypeBuild = "build"
	ErrorTypeSpawn = "spawn"
	ErrorTypeExit  = "exit"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Batch metrics
	BatchesStarted  prometheus.Counter
	BatchesFinished *prometheus.CounterVec
	BatchActive     prometheus.Gauge
	BatchDuration   prometheus.Histogram

	// Item metrics
	ItemsFinished *prometheus.CounterVec
	ItemErrors    *prometheus.CounterVec
	ItemDuration  prometheus.Histogram

	// Output metrics
	LogLines      *prometheus.CounterVec
	JournalEvents prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Dependency metrics
	DependencyChecks *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		// Batch metrics
		BatchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "started_total",
			Help:      "Total number of batches started",
		}),
		BatchesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "finished_total",
			Help:      "Total number of batches finished, by reason",
		}, []string{"reason"}),
		BatchActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "active",
			Help:      "1 while a batch is running",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "duration_seconds",
			Help:      "Histogram of batch duration in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		}),

		// Item metrics
		ItemsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "finished_total",
			Help:      "Total number of items finished, by result",
		}, []string{"result"}),
		ItemErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "errors_total",
			Help:      "Total number of item errors, by type",
		}, []string{"error_type"}),
		ItemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "duration_seconds",
			Help:      "Histogram of item download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Output metrics
		LogLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "lines_total",
			Help:      "Total number of output lines, by category",
		}, []string{"category"}),
		JournalEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "journal_events",
			Help:      "Current number of events held by the journal",
		}),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		}, []string{"method", "path"}),

		// Dependency metrics
		DependencyChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deps",
			Name:      "checks_total",
			Help:      "Total number of binary install and update checks",
		}, []string{"binary", "status"}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Timer returns a function that observes the elapsed time into h.
func Timer(h prometheus.Observer) func() {
	start := time.Now()

	return func() {
		h.Observe(time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordBatchStarted records a started batch.
func (m *Metrics) RecordBatchStarted() {
	m.BatchesStarted.Inc()
	m.BatchActive.Set(1)
}

// RecordBatchFinished records a finished batch.
func (m *Metrics) RecordBatchFinished(reason string) {
	m.BatchesFinished.WithLabelValues(reason).Inc()
	m.BatchActive.Set(0)
}

// RecordItemFinished records the terminal result of an item.
func (m *Metrics) RecordItemFinished(result string) {
	m.ItemsFinished.WithLabelValues(result).Inc()
}

// RecordItemError records an item error.
func (m *Metrics) RecordItemError(errorType string) {
	m.ItemErrors.WithLabelValues(errorType).Inc()
}

// RecordLogLine records one classified output line.
func (m *Metrics) RecordLogLine(category string) {
	m.LogLines.WithLabelValues(category).Inc()
}

// SetJournalEvents sets the number of events held by the journal.
func (m *Metrics) SetJournalEvents(count int) {
	m.JournalEvents.Set(float64(count))
}

// RecordDependencyCheck records a binary install or update check.
func (m *Metrics) RecordDependencyCheck(binary, status string) {
	m.DependencyChecks.WithLabelValues(binary, status).Inc()
}
