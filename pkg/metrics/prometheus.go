// Package metrics provides Prometheus metrics for the fleetsense
// safety service.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring engine
	scoringRuns       prometheus.Counter
	scoringErrors     prometheus.Counter
	scoreFallbacks    prometheus.Counter
	snapshotsAppended prometheus.Counter
	scoringLatency    prometheus.Histogram

	// Risk event ingestion
	eventsRecorded  prometheus.Counter
	eventsDuplicate prometheus.Counter

	// Intervention queue and coaching workflow
	queueBuilds         prometheus.Counter
	transitionsApplied  prometheus.Counter
	transitionsRejected prometheus.Counter
	outcomeEvaluations  prometheus.Counter

	// Rescore pipeline
	rescoreQueueDepth       prometheus.Gauge
	rescoreQueueCapacity    prometheus.Gauge
	rescoreQueueUtilization prometheus.Gauge
	rescoreEnqueued         prometheus.Counter
	rescoreEnqueueErrors    prometheus.Counter
	rescoreDequeued         prometheus.Counter
	workerCount             prometheus.Gauge
	workerErrors            prometheus.Counter
	workerLatency           prometheus.Histogram

	// Fleet scale
	driversTracked prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fleetsense",
		subsystem:        "safety",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoringRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scoring_runs_total",
		Help: "Total number of composite score calculations",
	})
	m.scoringErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scoring_errors_total",
		Help: "Total number of failed score calculations",
	})
	m.scoreFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "score_fallbacks_total",
		Help: "Total number of scorings that used the fallback external score",
	})
	m.snapshotsAppended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshots_appended_total",
		Help: "Total number of risk score snapshots appended to history",
	})
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "scoring_latency_milliseconds",
		Help:    "Histogram of score calculation latency in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.eventsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "risk_events_recorded_total",
		Help: "Total number of risk events recorded",
	})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "risk_events_duplicate_total",
		Help: "Total number of duplicate feed events rejected",
	})

	m.queueBuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "intervention_queue_builds_total",
		Help: "Total number of intervention queue builds",
	})
	m.transitionsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "checkin_transitions_applied_total",
		Help: "Total number of check-in transitions applied",
	})
	m.transitionsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "checkin_transitions_rejected_total",
		Help: "Total number of illegal check-in transitions rejected",
	})
	m.outcomeEvaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "outcome_evaluations_total",
		Help: "Total number of coaching outcome evaluations",
	})

	m.rescoreQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_queue_depth",
		Help: "Current depth of the rescore job queue",
	})
	m.rescoreQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_queue_capacity",
		Help: "Configured capacity of the rescore job queue",
	})
	m.rescoreQueueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_queue_utilization",
		Help: "Rescore queue depth as a fraction of capacity",
	})
	m.rescoreEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_jobs_enqueued_total",
		Help: "Total number of rescore jobs enqueued",
	})
	m.rescoreEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_enqueue_errors_total",
		Help: "Total number of rescore jobs rejected at enqueue",
	})
	m.rescoreDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rescore_jobs_dequeued_total",
		Help: "Total number of rescore jobs handed to workers",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Current number of rescore workers",
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_errors_total",
		Help: "Total number of rescore jobs that failed in a worker",
	})
	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "worker_job_latency_milliseconds",
		Help:    "Histogram of rescore job processing latency in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.driversTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "drivers_tracked",
		Help: "Total number of drivers tracked across organizations",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total",
		Help: "Total errors by component and kind",
	}, []string{"component", "kind"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Current number of goroutines",
	})
}

// GetRegistry returns the registry backing the global manager, for
// serving /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordScoringRun() { globalManager.scoringRuns.Inc() }
func RecordScoringError() { globalManager.scoringErrors.Inc() }
func RecordScoreFallback() { globalManager.scoreFallbacks.Inc() }
func RecordSnapshotAppended() { globalManager.snapshotsAppended.Inc() }
func RecordScoringLatency(ms float64) { globalManager.scoringLatency.Observe(ms) }

func RecordEventRecorded() { globalManager.eventsRecorded.Inc() }
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

func RecordQueueBuild() { globalManager.queueBuilds.Inc() }
func RecordTransitionApplied() { globalManager.transitionsApplied.Inc() }
func RecordTransitionRejected() { globalManager.transitionsRejected.Inc() }
func RecordOutcomeEvaluation() { globalManager.outcomeEvaluations.Inc() }

func UpdateRescoreQueueDepth(n int) { globalManager.rescoreQueueDepth.Set(float64(n)) }
func UpdateRescoreQueueCapacity(n int) { globalManager.rescoreQueueCapacity.Set(float64(n)) }
func UpdateRescoreQueueUtilization(f float64) { globalManager.rescoreQueueUtilization.Set(f) }
func RecordRescoreEnqueue() { globalManager.rescoreEnqueued.Inc() }
func RecordRescoreEnqueueError() { globalManager.rescoreEnqueueErrors.Inc() }
func RecordRescoreDequeue() { globalManager.rescoreDequeued.Inc() }
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerError() { globalManager.workerErrors.Inc() }
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

func UpdateDriversTracked(n int) { globalManager.driversTracked.Set(float64(n)) }

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the latency of an HTTP request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent counts an error against a component and kind.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// UpdateSystemMetrics refreshes process-level gauges.
func UpdateSystemMetrics() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	globalManager.systemMemoryUsage.Set(float64(mem.HeapAlloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}
