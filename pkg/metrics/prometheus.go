// Package metrics provides Prometheus metrics for the trust-gambit service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	// Submission intake
	submissionsTotal    *prometheus.CounterVec // by action
	submissionsRejected *prometheus.CounterVec // by reason
	passesSynthesized   prometheus.Counter

	// Scoring pipeline
	roundsCompleted    *prometheus.CounterVec // by reason
	scoringRuns        prometheus.Counter
	scoringErrors      prometheus.Counter
	scoringLatency     prometheus.Histogram
	cycleMembers       prometheus.Histogram
	scoredParticipants prometheus.Histogram

	// Lifecycle controller
	pollerTicks  prometheus.Counter
	activeRounds prometheus.Gauge

	// Notification fan-out
	notifySubscribers prometheus.Gauge
	notifyDropped     prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Completion dispatch
	queueCapacity prometheus.Gauge
	queueSize     prometheus.Gauge
	queueDropped  *prometheus.CounterVec // by reason
	workerCount   prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global manager on a custom registry, so default Go collectors do not leak
// into the scrape output.
var (
	customRegistry = prometheus.NewRegistry()                 //nolint:gochecknoglobals // singleton registry
	globalManager  = NewManager(WithRegistry(customRegistry)) //nolint:gochecknoglobals // singleton manager
)

// NewManager creates a metrics manager with all collectors registered.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "trustgambit",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.submissionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "submissions_total",
		Help:      "Submissions accepted, by action.",
	}, []string{"action"})
	m.submissionsRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "submissions_rejected_total",
		Help:      "Submissions rejected, by reason.",
	}, []string{"reason"})
	m.passesSynthesized = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "passes_synthesized_total",
		Help:      "PASS submissions synthesized for silent participants.",
	})

	m.roundsCompleted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rounds_completed_total",
		Help:      "Rounds transitioned to COMPLETED, by reason.",
	}, []string{"reason"})
	m.scoringRuns = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scoring_runs_total",
		Help:      "Scoring pipeline executions, including retries.",
	})
	m.scoringErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scoring_errors_total",
		Help:      "Scoring pipeline executions that failed.",
	})
	m.scoringLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "scoring_latency_ms",
		Help:      "Scoring pipeline latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	m.cycleMembers = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "cycle_members",
		Help:      "Participants caught in delegation cycles per round.",
		Buckets:   prometheus.LinearBuckets(0, 2, 10),
	})
	m.scoredParticipants = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "scored_participants",
		Help:      "Participants scored per round.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.pollerTicks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "poller_ticks_total",
		Help:      "Expiry poller ticks.",
	})
	m.activeRounds = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_rounds",
		Help:      "Rounds currently ACTIVE.",
	})

	m.notifySubscribers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "notify_subscribers",
		Help:      "Connected notification subscribers.",
	})
	m.notifyDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "notify_dropped_total",
		Help:      "Notifications dropped for slow subscribers.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"endpoint", "method"})

	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "completion_queue_capacity",
		Help:      "Capacity of the completion job queue.",
	})
	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "completion_queue_size",
		Help:      "Jobs currently queued for completion.",
	})
	m.queueDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "completion_queue_dropped_total",
		Help:      "Completion jobs dropped at enqueue, by reason.",
	}, []string{"reason"})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "completion_workers",
		Help:      "Workers consuming the completion queue.",
	})
	m.workerLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "completion_worker_latency_ms",
		Help:      "Completion job processing latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	m.workerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "completion_worker_errors_total",
		Help:      "Completion jobs that failed.",
	})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_memory_bytes",
		Help:      "Heap bytes currently allocated.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_goroutines",
		Help:      "Live goroutines in the process.",
	})

	return m
}

// GetRegistry returns the gatherer backing the global manager, for promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordSubmission(action string) { globalManager.submissionsTotal.WithLabelValues(action).Inc() }
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}
func RecordPassesSynthesized(n int) { globalManager.passesSynthesized.Add(float64(n)) }

func RecordRoundCompleted(reason string) {
	globalManager.roundsCompleted.WithLabelValues(reason).Inc()
}
func RecordScoringRun()               { globalManager.scoringRuns.Inc() }
func RecordScoringError()             { globalManager.scoringErrors.Inc() }
func RecordScoringLatency(ms float64) { globalManager.scoringLatency.Observe(ms) }
func RecordCycleMembers(n int)        { globalManager.cycleMembers.Observe(float64(n)) }
func RecordScoredParticipants(n int)  { globalManager.scoredParticipants.Observe(float64(n)) }

func RecordPollerTick()        { globalManager.pollerTicks.Inc() }
func UpdateActiveRounds(n int) { globalManager.activeRounds.Set(float64(n)) }

func UpdateNotifySubscribers(n int) { globalManager.notifySubscribers.Set(float64(n)) }
func RecordNotifyDropped()          { globalManager.notifyDropped.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueSize(n int)     { globalManager.queueSize.Set(float64(n)) }
func RecordQueueDropped(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

func UpdateWorkerCount(n int)        { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }
func RecordWorkerError()             { globalManager.workerErrors.Inc() }

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
