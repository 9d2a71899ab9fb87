// Package metrics provides Prometheus metrics for the stride run tracking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Buckets for run distance in kilometers.
var distanceBuckets = []float64{0.5, 1, 2, 5, 10, 21.1, 42.2, 60, 100}

// Manager manages all Prometheus metrics for the stride service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Run lifecycle
	runsCreated         prometheus.Counter
	runTransitions      *prometheus.CounterVec
	transitionsRejected *prometheus.CounterVec
	runDistance         prometheus.Histogram
	runsByStatus        *prometheus.GaugeVec

	// Ingestion and discovery
	positionsRecorded  prometheus.Counter
	positionsRejected  *prometheus.CounterVec
	collectiblesAwarded prometheus.Counter
	proximityChecks    prometheus.Histogram

	// Achievements
	challengesAwarded   *prometheus.CounterVec
	challengeDuplicates prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager and its registry. It must run before
// any handler or job records metrics.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	customRegistry = registry
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stride",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.runsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_created_total",
		Help:      "Total number of runs created",
	})

	m.runTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_transitions_total",
		Help:      "Accepted run lifecycle transitions by action",
	}, []string{"action"})

	m.transitionsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_transitions_rejected_total",
		Help:      "Rejected run lifecycle transitions by action and current status",
	}, []string{"action", "status"})

	m.runDistance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_distance_kilometers",
		Help:      "Distance of finished runs in kilometers",
		Buckets:   distanceBuckets,
	})

	m.runsByStatus = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs",
		Help:      "Current number of runs by status",
	}, []string{"status"})

	m.positionsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "positions_recorded_total",
		Help:      "Total number of GPS positions recorded",
	})

	m.positionsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "positions_rejected_total",
		Help:      "GPS positions rejected by reason",
	}, []string{"reason"})

	m.collectiblesAwarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "collectibles_awarded_total",
		Help:      "Collectible items newly added to an athlete's collection",
	})

	m.proximityChecks = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "proximity_check_milliseconds",
		Help:      "Time spent matching a position against collectible items",
		Buckets:   m.histogramBuckets,
	})

	m.challengesAwarded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenges_awarded_total",
		Help:      "Challenges created by rule",
	}, []string{"rule"})

	m.challengeDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenge_duplicates_total",
		Help:      "Challenge creations that lost a race and were treated as no-ops",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operation_latency_milliseconds",
		Help:      "Store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Store operation failures",
	}, []string{"operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Allocated heap memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RefreshInterval reports how often gauges are expected to be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Run lifecycle.

// RecordRunCreated increments the created-runs counter.
func RecordRunCreated() {
	globalManager.runsCreated.Inc()
}

// RecordRunTransition counts an accepted transition.
func RecordRunTransition(action string) {
	globalManager.runTransitions.WithLabelValues(action).Inc()
}

// RecordTransitionRejected counts a rejected transition.
func RecordTransitionRejected(action, status string) {
	globalManager.transitionsRejected.WithLabelValues(action, status).Inc()
}

// RecordRunDistance observes the distance of a finished run.
func RecordRunDistance(km float64) {
	globalManager.runDistance.Observe(km)
}

// UpdateRunsByStatus sets the number of runs currently in status.
func UpdateRunsByStatus(status string, count int) {
	globalManager.runsByStatus.WithLabelValues(status).Set(float64(count))
}

// Ingestion and discovery.

func RecordPositionRecorded() {
	globalManager.positionsRecorded.Inc()
}

func RecordPositionRejected(reason string) {
	globalManager.positionsRejected.WithLabelValues(reason).Inc()
}

func RecordCollectibleAwarded() {
	globalManager.collectiblesAwarded.Inc()
}

func RecordProximityCheck(latencyMs float64) {
	globalManager.proximityChecks.Observe(latencyMs)
}

// Achievements.

// RecordChallengeAwarded counts a newly created challenge for rule.
func RecordChallengeAwarded(rule string) {
	globalManager.challengesAwarded.WithLabelValues(rule).Inc()
}

// RecordChallengeDuplicate counts a creation that hit the uniqueness guard.
func RecordChallengeDuplicate() {
	globalManager.challengeDuplicates.Inc()
}

// Store.

// RecordStoreLatency observes a store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// GetManager returns the global manager.
func GetManager() *Manager {
	return globalManager
}
