// Package metrics provides Prometheus metrics for the swipe evaluation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default latency buckets in milliseconds. Vote and fetch calls are network
// bound; settle durations sit in the 100ms..2s band.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Manager owns all Prometheus collectors for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Decisions
	decisions *prometheus.CounterVec
	cancels   prometheus.Counter
	clicks    prometheus.Counter

	// Votes
	votesSubmitted   prometheus.Counter
	votesFailed      *prometheus.CounterVec
	voteLatency      prometheus.Histogram
	refreshFailures  prometheus.Counter
	recommendationsN prometheus.Gauge

	// Candidate stream
	fetches           *prometheus.CounterVec
	fetchLatency      prometheus.Histogram
	staleCompletions  prometheus.Counter
	duplicatesDropped prometheus.Counter
	queueLength       prometheus.Gauge
	sessionState      prometheus.Gauge

	// Animation
	settleDuration prometheus.Histogram
	settleTimeouts prometheus.Counter

	// Event loop
	loopTaskLatency prometheus.Histogram
	loopDropped     prometheus.Counter
	loopBacklog     prometheus.Gauge

	// Backend resilience
	breakerState *prometheus.GaugeVec

	// HTTP boundary
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

var (
	customRegistry = prometheus.NewRegistry()
	globalManager  *Manager
)

func init() { //nolint:gochecknoinits // global collectors are registered once per process
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "swipe",
		subsystem:        "engine",
		histogramBuckets: defaultLatencyBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.decisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "decisions_total",
		Help: "Committed decisions by outcome",
	}, []string{"outcome"})
	m.cancels = m.counter("gestures_cancelled_total", "Gestures released below the commit threshold")
	m.clicks = m.counter("card_clicks_total", "Releases treated as a click-to-detail")

	m.votesSubmitted = m.counter("votes_submitted_total", "Votes sent to the backend")
	m.votesFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "votes_failed_total",
		Help: "Vote submissions rejected or lost, by error kind",
	}, []string{"kind"})
	m.voteLatency = m.histogram("vote_latency_milliseconds", "Vote submission round trip")
	m.refreshFailures = m.counter("recommendation_refresh_failures_total", "Failed recommendation refreshes")
	m.recommendationsN = m.gauge("recommendations", "Entries in the last recommendation snapshot")

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "candidate_fetches_total",
		Help: "Candidate batch fetches by result",
	}, []string{"result"})
	m.fetchLatency = m.histogram("candidate_fetch_latency_milliseconds", "Candidate batch fetch round trip")
	m.staleCompletions = m.counter("stale_completions_total", "Async completions discarded by the generation check")
	m.duplicatesDropped = m.counter("duplicate_candidates_total", "Candidates dropped from batches because they were already seen")
	m.queueLength = m.gauge("queue_length", "Candidates waiting behind the current one")
	m.sessionState = m.gauge("session_state", "Current session state as its ordinal")

	m.settleDuration = m.histogram("animation_settle_milliseconds", "Time from setTarget to settle")
	m.settleTimeouts = m.counter("animation_settle_timeouts_total", "Animations settled by the max-duration fallback")

	m.loopTaskLatency = m.histogram("loop_task_latency_milliseconds", "Time a task waited on the event loop")
	m.loopDropped = m.counter("loop_tasks_dropped_total", "Tasks rejected because the loop queue was full or closed")
	m.loopBacklog = m.gauge("loop_backlog", "Tasks waiting on the event loop")

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "backend_breaker_state",
		Help: "Backend circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemory = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutines = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPause = m.histogram("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordDecision counts a committed Accept or Reject.
func RecordDecision(outcome string) { globalManager.decisions.WithLabelValues(outcome).Inc() }

// RecordCancel counts a gesture that snapped back.
func RecordCancel() { globalManager.cancels.Inc() }

// RecordClick counts a release treated as click-to-detail.
func RecordClick() { globalManager.clicks.Inc() }

// RecordVoteSubmitted counts a vote handed to the backend.
func RecordVoteSubmitted() { globalManager.votesSubmitted.Inc() }

// RecordVoteFailed counts a failed vote by kind ("network", "validation").
func RecordVoteFailed(kind string) { globalManager.votesFailed.WithLabelValues(kind).Inc() }

// RecordVoteLatency records a vote round trip in milliseconds.
func RecordVoteLatency(ms float64) { globalManager.voteLatency.Observe(ms) }

// RecordRefreshFailure counts a failed recommendation refresh.
func RecordRefreshFailure() { globalManager.refreshFailures.Inc() }

// UpdateRecommendations sets the size of the recommendation snapshot.
func UpdateRecommendations(n int) { globalManager.recommendationsN.Set(float64(n)) }

// RecordFetch counts a candidate fetch by result ("ok", "empty", "error").
func RecordFetch(result string) { globalManager.fetches.WithLabelValues(result).Inc() }

// RecordFetchLatency records a candidate fetch round trip in milliseconds.
func RecordFetchLatency(ms float64) { globalManager.fetchLatency.Observe(ms) }

// RecordStaleCompletion counts an async completion dropped by the generation check.
func RecordStaleCompletion() { globalManager.staleCompletions.Inc() }

// RecordDuplicatesDropped counts candidates filtered out of a batch.
func RecordDuplicatesDropped(n int) { globalManager.duplicatesDropped.Add(float64(n)) }

// UpdateQueueLength sets the number of candidates waiting.
func UpdateQueueLength(n int) { globalManager.queueLength.Set(float64(n)) }

// UpdateSessionState sets the session state ordinal.
func UpdateSessionState(ordinal int) { globalManager.sessionState.Set(float64(ordinal)) }

// RecordSettle records how long an animation took to settle.
func RecordSettle(ms float64) { globalManager.settleDuration.Observe(ms) }

// RecordSettleTimeout counts a settle forced by the max-duration fallback.
func RecordSettleTimeout() { globalManager.settleTimeouts.Inc() }

// RecordLoopTaskLatency records how long a task waited before running.
func RecordLoopTaskLatency(ms float64) { globalManager.loopTaskLatency.Observe(ms) }

// RecordLoopDropped counts a task the loop refused.
func RecordLoopDropped() { globalManager.loopDropped.Inc() }

// UpdateLoopBacklog sets the number of tasks waiting on the loop.
func UpdateLoopBacklog(n int) { globalManager.loopBacklog.Set(float64(n)) }

// UpdateBreakerState sets the circuit breaker state gauge.
func UpdateBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the registry holding the engine collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemory.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the live goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPause.Observe(ms) }
