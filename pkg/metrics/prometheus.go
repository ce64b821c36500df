// Package metrics provides Prometheus metrics for the athlete portal.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector the portal exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Journey
	registrations     *prometheus.CounterVec
	logins            *prometheus.CounterVec
	otpVerifications  *prometheus.CounterVec
	sportSelections   *prometheus.CounterVec
	quizOutcomes      *prometheus.CounterVec
	quizPercentage    prometheus.Histogram
	fitnessOutcomes   *prometheus.CounterVec
	blockingReasons   *prometheus.CounterVec
	stageTransitions  *prometheus.CounterVec
	rejectedSkips     prometheus.Counter
	uploadsDuplicate  prometheus.Counter
	uploadBytes       prometheus.Histogram
	analyses          *prometheus.CounterVec
	analysisLatency   prometheus.Histogram
	analysisScore     prometheus.Histogram
	leaderboardSize   prometheus.Gauge
	leaderboardWrites *prometheus.CounterVec
	athletesTotal     prometheus.Gauge

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram
	snapshotCount           prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Queue & workers
	queueCapacity    prometheus.Gauge
	queueSize        prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter
	workerThroughput prometheus.Gauge

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "apas",
		subsystem:        "portal",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often background gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	percentBuckets := prometheus.LinearBuckets(0, 10, 11)

	m.registrations = m.counterVec("registrations_total", "Registration attempts by result", "result")
	m.logins = m.counterVec("logins_total", "Login attempts by result", "result")
	m.otpVerifications = m.counterVec("otp_verifications_total", "Verification code checks by result", "result")
	m.sportSelections = m.counterVec("sport_selections_total", "Sport selections by sport and skill level", "sport", "skill_level")
	m.quizOutcomes = m.counterVec("quiz_outcomes_total", "Excellence quiz results by sport and outcome", "sport", "outcome")
	m.quizPercentage = m.histogram("quiz_percentage", "Distribution of excellence quiz percentages", percentBuckets)
	m.fitnessOutcomes = m.counterVec("fitness_outcomes_total", "Fitness gate results by outcome", "outcome")
	m.blockingReasons = m.counterVec("fitness_blocking_reasons_total", "Blocking reasons raised by the health questionnaire", "reason")
	m.stageTransitions = m.counterVec("stage_transitions_total", "Pipeline stage transitions", "from", "to")
	m.rejectedSkips = m.counter("stage_skips_rejected_total", "Requests rejected for attempting to skip a pipeline stage")
	m.uploadsDuplicate = m.counter("uploads_duplicate_total", "Video uploads replayed with a known idempotency key")
	m.uploadBytes = m.histogram("upload_bytes", "Size of uploaded videos in bytes", prometheus.ExponentialBuckets(1<<16, 4, 10))
	m.analyses = m.counterVec("analyses_total", "Video analyses by final status", "status")
	m.analysisLatency = m.histogram("analysis_latency_milliseconds", "End-to-end analysis latency in milliseconds", m.histogramBuckets)
	m.analysisScore = m.histogram("analysis_overall_score", "Distribution of overall analysis scores", percentBuckets)
	m.leaderboardSize = m.gauge("leaderboard_size", "Athletes currently on the leaderboard")
	m.leaderboardWrites = m.counterVec("leaderboard_writes_total", "Leaderboard inserts by result", "result")
	m.athletesTotal = m.gauge("athletes_total", "Registered athletes")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency in milliseconds", m.histogramBuckets)
	m.snapshotCount = m.counter("leaderboard_snapshots_total", "Leaderboard snapshots published")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.queueCapacity = m.gauge("queue_capacity", "Analysis queue capacity")
	m.queueSize = m.gauge("queue_size", "Jobs waiting in the analysis queue")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Jobs rejected by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Analysis workers")
	m.workerBusy = m.gauge("worker_busy", "Analysis workers currently processing a job")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")
	m.workerThroughput = m.gauge("worker_jobs_per_second", "Average jobs completed per second")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRegistration counts a registration attempt ("created", "invalid", "duplicate", "error").
func RecordRegistration(result string) { globalManager.registrations.WithLabelValues(result).Inc() }

// RecordLogin counts a login attempt.
func RecordLogin(result string) { globalManager.logins.WithLabelValues(result).Inc() }

// RecordOTPVerification counts a verification code check.
func RecordOTPVerification(result string) {
	globalManager.otpVerifications.WithLabelValues(result).Inc()
}

// RecordSportSelection counts a sport selection.
func RecordSportSelection(sport, skillLevel string) {
	globalManager.sportSelections.WithLabelValues(sport, skillLevel).Inc()
}

// RecordQuizOutcome counts a quiz result and observes its percentage.
func RecordQuizOutcome(sport string, passed bool, percentage int) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	globalManager.quizOutcomes.WithLabelValues(sport, outcome).Inc()
	globalManager.quizPercentage.Observe(float64(percentage))
}

// RecordFitnessOutcome counts a gate decision and each blocking reason behind it.
func RecordFitnessOutcome(blocked bool, reasons []string) {
	outcome := "cleared"
	if blocked {
		outcome = "blocked"
	}
	globalManager.fitnessOutcomes.WithLabelValues(outcome).Inc()
	for _, r := range reasons {
		globalManager.blockingReasons.WithLabelValues(r).Inc()
	}
}

// RecordStageTransition counts a pipeline move.
func RecordStageTransition(from, to string) {
	globalManager.stageTransitions.WithLabelValues(from, to).Inc()
}

// RecordRejectedSkip counts a request refused because the athlete is at the wrong stage.
func RecordRejectedSkip() { globalManager.rejectedSkips.Inc() }

// RecordUploadDuplicate counts an idempotent upload replay.
func RecordUploadDuplicate() { globalManager.uploadsDuplicate.Inc() }

// RecordUploadBytes observes an upload size.
func RecordUploadBytes(n int64) { globalManager.uploadBytes.Observe(float64(n)) }

// RecordAnalysis counts a finished analysis and its latency.
func RecordAnalysis(status string, latencyMs float64) {
	globalManager.analyses.WithLabelValues(status).Inc()
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordAnalysisScore observes an overall score.
func RecordAnalysisScore(score int) { globalManager.analysisScore.Observe(float64(score)) }

// UpdateLeaderboardSize sets the leaderboard size.
func UpdateLeaderboardSize(n int) { globalManager.leaderboardSize.Set(float64(n)) }

// RecordLeaderboardWrite counts an insert ("inserted", "improved", "kept", "error").
func RecordLeaderboardWrite(result string) {
	globalManager.leaderboardWrites.WithLabelValues(result).Inc()
}

// UpdateAthletesTotal sets the registered athlete count.
func UpdateAthletesTotal(n int) { globalManager.athletesTotal.Set(float64(n)) }

// RecordRepositoryUpdateLatency observes a repository write.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency observes a repository read.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// IncrementSnapshotCount counts a published leaderboard snapshot.
func IncrementSnapshotCount() { globalManager.snapshotCount.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a throttled request.
func RecordRateLimited(endpoint string) { globalManager.rateLimited.WithLabelValues(endpoint).Inc() }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueSize sets the queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the worker count.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// AddWorkerBusy moves the busy-worker gauge by delta.
func AddWorkerBusy(delta int) { globalManager.workerBusy.Add(float64(delta)) }

// RecordWorkerProcessingLatency observes one job's processing time.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateWorkerThroughput sets the jobs-per-second gauge.
func UpdateWorkerThroughput(rate float64) { globalManager.workerThroughput.Set(rate) }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval exposes the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }
