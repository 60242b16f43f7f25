// Package metrics provides Prometheus metrics for the live scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the live scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring
	submissionsAccepted prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	storedEntries       prometheus.Gauge

	// Leaderboard
	recomputeLatency   prometheus.Histogram
	leaderboardUpdates prometheus.Counter
	leaderboardTeams   prometheus.Gauge

	// Hub
	hubConnections prometheus.Gauge
	hubBroadcasts  *prometheus.CounterVec
	hubDrops       *prometheus.CounterVec

	// Clock
	clockActive    prometheus.Gauge
	clockRemaining prometheus.Gauge

	// Change queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Relay
	relayPublished  prometheus.Counter
	relayReceived   prometheus.Counter
	relayDuplicates prometheus.Counter
	relayErrors     *prometheus.CounterVec

	// Key/value store
	kvErrors *prometheus.CounterVec

	// Client session
	sessionReconnects *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "livescore",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
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
	m.submissionsAccepted = m.counter("submissions_accepted_total", "Score submissions accepted by the score store")
	m.submissionsRejected = m.counterVec("submissions_rejected_total", "Score submissions rejected, by reason", "reason")
	m.storedEntries = m.gauge("score_entries", "Number of (evaluator, team) score entries held")

	m.recomputeLatency = m.histogram("leaderboard_recompute_milliseconds", "Latency of a full leaderboard recomputation")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Leaderboard recomputations published to clients")
	m.leaderboardTeams = m.gauge("leaderboard_teams", "Teams currently present on the leaderboard")

	m.hubConnections = m.gauge("hub_connections", "Open live connections registered with the hub")
	m.hubBroadcasts = m.counterVec("hub_broadcasts_total", "Events published through the hub, by type", "event_type")
	m.hubDrops = m.counterVec("hub_dropped_connections_total", "Connections pruned by the hub, by reason", "reason")

	m.clockActive = m.gauge("clock_active", "1 when the shared countdown is running")
	m.clockRemaining = m.gauge("clock_remaining_seconds", "Seconds left on the shared countdown at last observation")

	m.queueSize = m.gauge("change_queue_size", "Pending change events")
	m.queueCapacity = m.gauge("change_queue_capacity", "Capacity of the change queue")
	m.queueEnqueued = m.counter("change_queue_enqueued_total", "Change events enqueued")
	m.queueDequeued = m.counter("change_queue_dequeued_total", "Change events dequeued")
	m.queueEnqueueErrors = m.counter("change_queue_enqueue_errors_total", "Change events rejected because the queue was full or closed")
	m.workerCount = m.gauge("worker_count", "Running change workers")
	m.workerProcessingLatency = m.histogram("worker_processing_milliseconds", "Time a worker spends on one change event")
	m.workerErrors = m.counter("worker_errors_total", "Change events that failed processing")

	m.relayPublished = m.counter("relay_published_total", "Events forwarded to peer replicas")
	m.relayReceived = m.counter("relay_received_total", "Events received from peer replicas")
	m.relayDuplicates = m.counter("relay_duplicates_total", "Relayed events discarded as duplicates")
	m.relayErrors = m.counterVec("relay_errors_total", "Relay failures, by operation", "op")

	m.kvErrors = m.counterVec("kv_errors_total", "Durable key/value store failures, by operation", "op")

	m.sessionReconnects = m.counterVec("session_reconnects_total", "Client session reconnect attempts, by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSubmissionAccepted increments the accepted submissions counter.
func RecordSubmissionAccepted() {
	globalManager.submissionsAccepted.Inc()
}

// RecordSubmissionRejected increments the rejected submissions counter for reason.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// UpdateScoreEntries sets the number of stored score entries.
func UpdateScoreEntries(count int) {
	globalManager.storedEntries.Set(float64(count))
}

// RecordRecomputeLatency records leaderboard recompute latency in milliseconds.
func RecordRecomputeLatency(latencyMs float64) {
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// UpdateLeaderboardTeams sets the number of ranked teams.
func UpdateLeaderboardTeams(count int) {
	globalManager.leaderboardTeams.Set(float64(count))
}

// UpdateHubConnections sets the number of open hub connections.
func UpdateHubConnections(count int) {
	globalManager.hubConnections.Set(float64(count))
}

// RecordHubBroadcast counts one published event of eventType.
func RecordHubBroadcast(eventType string) {
	globalManager.hubBroadcasts.WithLabelValues(eventType).Inc()
}

// RecordHubDrop counts a connection pruned by the hub.
func RecordHubDrop(reason string) {
	globalManager.hubDrops.WithLabelValues(reason).Inc()
}

// UpdateClockActive sets the clock active gauge.
func UpdateClockActive(active bool) {
	if active {
		globalManager.clockActive.Set(1)
		return
	}
	globalManager.clockActive.Set(0)
}

// UpdateClockRemaining sets the remaining seconds gauge.
func UpdateClockRemaining(seconds float64) {
	globalManager.clockRemaining.Set(seconds)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordRelayPublish counts an event forwarded to peers.
func RecordRelayPublish() {
	globalManager.relayPublished.Inc()
}

// RecordRelayReceive counts an event received from a peer.
func RecordRelayReceive() {
	globalManager.relayReceived.Inc()
}

// RecordRelayDuplicate counts a relayed event discarded as already seen.
func RecordRelayDuplicate() {
	globalManager.relayDuplicates.Inc()
}

// RecordRelayError counts a relay failure for op.
func RecordRelayError(op string) {
	globalManager.relayErrors.WithLabelValues(op).Inc()
}

// RecordKVError counts a key/value store failure for op.
func RecordKVError(op string) {
	globalManager.kvErrors.WithLabelValues(op).Inc()
}

// RecordSessionReconnect counts a reconnect attempt with its outcome.
func RecordSessionReconnect(outcome string) {
	globalManager.sessionReconnects.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
