package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	interviewsStartedTotal   prometheus.Counter
	interviewsCompletedTotal *prometheus.CounterVec
	activeSessionsGauge      prometheus.Gauge
	fallbackQuestionsTotal   prometheus.Counter
	fallbackEvaluationsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API
// and the interview engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesage_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codesage_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesage_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		interviewsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codesage_interviews_started_total",
			Help: "Total number of interview sessions initialised.",
		})

		interviewsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesage_interviews_completed_total",
			Help: "Total number of interview sessions completed, by completion method.",
		}, []string{"method"})

		activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codesage_active_sessions",
			Help: "Number of interview sessions currently registered.",
		})

		fallbackQuestionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codesage_fallback_questions_total",
			Help: "Total number of locally synthesized questions served.",
		})

		fallbackEvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codesage_fallback_evaluations_total",
			Help: "Total number of submissions scored by the deterministic fallback.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			interviewsStartedTotal, interviewsCompletedTotal, activeSessionsGauge,
			fallbackQuestionsTotal, fallbackEvaluationsTotal,
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

// InterviewsStarted exposes the counter for initialised sessions.
func InterviewsStarted() prometheus.Counter {
	RegisterMetrics()
	return interviewsStartedTotal
}

// InterviewsCompleted exposes the completion counter, labelled by method.
func InterviewsCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewsCompletedTotal
}

// ActiveSessions exposes the live-session gauge.
func ActiveSessions() prometheus.Gauge {
	RegisterMetrics()
	return activeSessionsGauge
}

// FallbackQuestions exposes the synthesized-question counter.
func FallbackQuestions() prometheus.Counter {
	RegisterMetrics()
	return fallbackQuestionsTotal
}

// FallbackEvaluations exposes the deterministic-scoring counter.
func FallbackEvaluations() prometheus.Counter {
	RegisterMetrics()
	return fallbackEvaluationsTotal
}
