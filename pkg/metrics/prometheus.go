// Package metrics provides Prometheus metrics for the cadence dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Confidence buckets span the clamp range of the prediction engine.
var confidenceBuckets = []float64{40, 50, 60, 70, 75, 80, 85, 90, 95, 98}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core business metrics
	observationsAccepted prometheus.Counter
	observationsRejected *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	sessionResets        prometheus.Counter
	predictions          *prometheus.CounterVec
	predictionConfidence prometheus.Histogram
	statusEvaluations    *prometheus.CounterVec

	// Session metrics
	sessionsActive  prometheus.Gauge
	sessionsOpened  prometheus.Counter
	sessionsEvicted prometheus.Counter
	tickDuration    prometheus.Histogram

	// Authentication metrics
	authAttempts *prometheus.CounterVec
	authLatency  prometheus.Histogram

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System performance metrics
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

// Configure rebuilds the global manager on a fresh registry with opts. It
// must run before handlers call GetRegistry and before any metric is recorded
// concurrently.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cadence",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus collectors.
func (m *Manager) initializeMetrics() {
	m.observationsAccepted = m.counter("observations_accepted_total", "Observations appended to a session history")
	m.observationsRejected = m.counterVec("observations_rejected_total", "Observations rejected by validation", "field")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Repeated submission ids acknowledged without mutation")
	m.sessionResets = m.counter("session_resets_total", "Explicit session resets")
	m.predictions = m.counterVec("predictions_total", "Predictions computed by regime", "regime")
	m.predictionConfidence = m.histogram("prediction_confidence_percent", "Distribution of prediction confidence", confidenceBuckets)
	m.statusEvaluations = m.counterVec("status_evaluations_total", "Status classifications by resulting status", "status")

	m.sessionsActive = m.gauge("sessions_active", "Sessions currently held in memory")
	m.sessionsOpened = m.counter("sessions_opened_total", "Sessions opened after sign-in")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Sessions evicted after the idle timeout")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Time spent evaluating all sessions on one tick", m.histogramBuckets)

	m.authAttempts = m.counterVec("auth_attempts_total", "Sign-in attempts by outcome", "outcome")
	m.authLatency = m.histogram("auth_latency_milliseconds", "Identity provider round trip in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that failed", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordObservationAccepted increments the accepted observations counter.
func RecordObservationAccepted() {
	globalManager.observationsAccepted.Inc()
}

// RecordObservationRejected counts a validation failure on field.
func RecordObservationRejected(field string) {
	globalManager.observationsRejected.WithLabelValues(field).Inc()
}

// RecordSubmissionDuplicate counts a repeated submission id.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordSessionReset counts an explicit reset.
func RecordSessionReset() {
	globalManager.sessionResets.Inc()
}

// RecordPrediction counts a computed prediction and observes its confidence.
func RecordPrediction(regime string, confidence float64) {
	globalManager.predictions.WithLabelValues(regime).Inc()
	globalManager.predictionConfidence.Observe(confidence)
}

// RecordStatusEvaluation counts one classification result.
func RecordStatusEvaluation(status string) {
	globalManager.statusEvaluations.WithLabelValues(status).Inc()
}

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionOpened counts a new session.
func RecordSessionOpened() {
	globalManager.sessionsOpened.Inc()
}

// RecordSessionsEvicted counts idle sessions dropped on a tick.
func RecordSessionsEvicted(n int) {
	globalManager.sessionsEvicted.Add(float64(n))
}

// RecordTickDuration observes how long one tick took.
func RecordTickDuration(ms float64) {
	globalManager.tickDuration.Observe(ms)
}

// RecordAuthAttempt counts a sign-in attempt and its provider latency.
func RecordAuthAttempt(outcome string, latencyMs float64) {
	globalManager.authAttempts.WithLabelValues(outcome).Inc()
	globalManager.authLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
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
