// Package metrics provides Prometheus metrics for the leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission pipeline
	submissions          *prometheus.CounterVec
	validationRejections *prometheus.CounterVec
	allTimeUpdates       *prometheus.CounterVec
	allTimeSize          prometheus.Gauge
	purgedRows           prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec
	storeRows    *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "boxy",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

// initializeMetrics creates and registers every metric.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissions = m.counterVec("submissions_total",
		"Score submissions by outcome (accepted, rejected, invalid)", "outcome")
	m.validationRejections = m.counterVec("validation_rejections_total",
		"Submissions failing the plausibility check, by reason", "reason")
	m.allTimeUpdates = m.counterVec("alltime_updates_total",
		"All-time maintenance results (admitted, not_improved, not_qualified, evicted, failed)", "result")
	m.allTimeSize = m.gauge("alltime_entries", "Entries observed in the all-time scope after the last update")
	m.purgedRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "purged_rows_total",
		Help:      "Expired daily rows removed by the purge loop",
	})

	m.storeLatency = m.histogramVec("store_operation_duration_milliseconds",
		"Store operation latency in milliseconds", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "backend", "op")
	m.storeRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_rows",
		Help:      "Rows held by the store",
	}, []string{"backend"})

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by route, method and status", "route", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "route", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordValidationRejection counts a plausibility failure by reason.
func RecordValidationRejection(reason string) {
	globalManager.validationRejections.WithLabelValues(reason).Inc()
}

// RecordAllTimeUpdate counts an all-time maintenance result.
func RecordAllTimeUpdate(result string) {
	globalManager.allTimeUpdates.WithLabelValues(result).Inc()
}

// UpdateAllTimeSize sets the observed all-time entry count.
func UpdateAllTimeSize(n int) {
	globalManager.allTimeSize.Set(float64(n))
}

// RecordPurged adds purged rows.
func RecordPurged(n int) {
	globalManager.purgedRows.Add(float64(n))
}

// RecordStoreOperation records store latency in milliseconds.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// UpdateStoreRows sets the row count of a backend.
func UpdateStoreRows(backend string, n int) {
	globalManager.storeRows.WithLabelValues(backend).Set(float64(n))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
