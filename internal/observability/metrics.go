package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	gradingAttemptsTotal  *prometheus.CounterVec
	gradingConflictsTotal *prometheus.CounterVec

	codeGenerationAttempts prometheus.Histogram

	notificationsPublishedTotal *prometheus.CounterVec
	sseClientsActive            prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_grading_attempts_total",
			Help: "Grading attempts by submission kind and outcome.",
		}, []string{"kind", "outcome"})

		gradingConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_grading_conflicts_total",
			Help: "Conditional grade writes rejected due to a stale version.",
		}, []string{"kind"})

		codeGenerationAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lms_course_code_attempts",
			Help:    "Oracle probes needed per course code generation.",
			Buckets: []float64{1, 2, 3, 4, 5},
		})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_notifications_published_total",
			Help: "Notifications published, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lms_sse_clients_active",
			Help: "Currently connected SSE notification clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gradingAttemptsTotal,
			gradingConflictsTotal,
			codeGenerationAttempts,
			notificationsPublishedTotal,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// GradingAttempts exposes the grading outcome counter.
func GradingAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingAttemptsTotal
}

// GradingConflicts exposes the version-conflict counter.
func GradingConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingConflictsTotal
}

// CodeGenerationAttempts exposes the per-generation probe histogram.
func CodeGenerationAttempts() prometheus.Histogram {
	RegisterMetrics()
	return codeGenerationAttempts
}

// NotificationsPublishedTotal exposes the published notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// SSEClientsActive exposes the connected SSE client gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
