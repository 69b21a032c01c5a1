// Package metrics provides Prometheus metrics for the manifest normalizer service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Normalization
	recordsNormalized prometheus.Counter
	parseFailures     *prometheus.CounterVec
	duplicates        prometheus.Counter
	normalizeLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Store
	storeRecords    prometheus.Gauge
	storeRejections prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "manifest",
		subsystem:        "normalizer",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsNormalized = auto.NewCounter(m.counterOpts("records_normalized_total",
		"Total number of manifest rows successfully normalized"))
	m.parseFailures = auto.NewCounterVec(m.counterOpts("parse_failures_total",
		"Total number of rows rejected by a field parser"), []string{"field", "kind"})
	m.duplicates = auto.NewCounter(m.counterOpts("duplicates_total",
		"Total number of rows skipped because their passenger id was already seen"))
	m.normalizeLatency = auto.NewHistogram(m.histogramOpts("normalize_latency_milliseconds",
		"Time spent parsing the fields of one row", m.histogramBuckets))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current number of rows waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum number of rows the queue accepts"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Total number of rows enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Total number of rows dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total",
		"Total number of rows refused by the queue"), []string{"reason"})

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of normalization workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time from dequeue to store write for one row", m.histogramBuckets))

	m.storeRecords = auto.NewGauge(m.gaugeOpts("store_records", "Number of normalized passengers held"))
	m.storeRejections = auto.NewGauge(m.gaugeOpts("store_rejections", "Number of rejected rows held"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})
	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}))
}

// RecordNormalized counts a successfully normalized row and its parse latency.
func (m *Manager) RecordNormalized(latencyMs float64) {
	m.recordsNormalized.Inc()
	m.normalizeLatency.Observe(latencyMs)
}

// RecordParseFailure counts a row rejected while parsing field.
func (m *Manager) RecordParseFailure(field, kind string) {
	m.parseFailures.WithLabelValues(field, kind).Inc()
}

// RecordDuplicate counts a row skipped as already seen.
func (m *Manager) RecordDuplicate() { m.duplicates.Inc() }

// UpdateQueue sets the queue gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func (m *Manager) UpdateQueueCapacity(capacity int) { m.queueCapacity.Set(float64(capacity)) }

// RecordEnqueue counts an accepted row.
func (m *Manager) RecordEnqueue() { m.queueEnqueued.Inc() }

// RecordDequeue counts a row handed to a worker.
func (m *Manager) RecordDequeue() { m.queueDequeued.Inc() }

// RecordEnqueueError counts a refused row by reason.
func (m *Manager) RecordEnqueueError(reason string) {
	m.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker gauge.
func (m *Manager) UpdateWorkerCount(count int) { m.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes one row's processing time.
func (m *Manager) RecordWorkerProcessingLatency(latencyMs float64) {
	m.workerProcessingLatency.Observe(latencyMs)
}

// UpdateStore sets the store gauges.
func (m *Manager) UpdateStore(records, rejections int) {
	m.storeRecords.Set(float64(records))
	m.storeRejections.Set(float64(rejections))
}

// RecordHTTPRequest counts a request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error raised by component.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystem sets the memory and goroutine gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int) {
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// RecordSystemGCPauseTime observes an average GC pause.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) { m.systemGCPauseTime.Observe(pauseMs) }

// Package-level helpers delegate to the global manager.

func RecordNormalized(latencyMs float64)               { globalManager.RecordNormalized(latencyMs) }
func RecordParseFailure(field, kind string)            { globalManager.RecordParseFailure(field, kind) }
func RecordDuplicate()                                 { globalManager.RecordDuplicate() }
func UpdateQueue(size, capacity int)                   { globalManager.UpdateQueue(size, capacity) }
func UpdateQueueCapacity(capacity int)                 { globalManager.UpdateQueueCapacity(capacity) }
func RecordEnqueue()                                   { globalManager.RecordEnqueue() }
func RecordDequeue()                                   { globalManager.RecordDequeue() }
func RecordEnqueueError(reason string)                 { globalManager.RecordEnqueueError(reason) }
func UpdateWorkerCount(count int)                      { globalManager.UpdateWorkerCount(count) }
func RecordWorkerProcessingLatency(latencyMs float64)  { globalManager.RecordWorkerProcessingLatency(latencyMs) }
func UpdateStore(records, rejections int)              { globalManager.UpdateStore(records, rejections) }
func RecordErrorByComponent(component, errType string) { globalManager.RecordErrorByComponent(component, errType) }
func UpdateSystem(memoryBytes uint64, goroutines int)  { globalManager.UpdateSystem(memoryBytes, goroutines) }
func RecordSystemGCPauseTime(pauseMs float64)          { globalManager.RecordSystemGCPauseTime(pauseMs) }

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
