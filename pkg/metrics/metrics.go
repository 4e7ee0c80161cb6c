// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ActiveSessions tracks sessions currently held in the session store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_active_sessions",
			Help: "Number of active conversation sessions",
		},
	)

	// TurnsTotal tracks processed conversation turns.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"channel", "stage"},
	)

	// ArchivesTotal tracks archived conversations by termination reason.
	ArchivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_archives_total",
			Help: "Total conversations archived",
		},
		[]string{"reason"},
	)

	// ArchiveFailures tracks durable-write failures during finalize.
	ArchiveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_archive_failures_total",
			Help: "Finalize attempts that failed to persist",
		},
	)

	// SweepRuns tracks expiration sweeper executions.
	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_sweep_runs_total",
			Help: "Total expiration sweeper runs",
		},
	)

	// SweptSessions tracks sessions finalized by the sweeper.
	SweptSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_swept_sessions_total",
			Help: "Sessions finalized by the expiration sweeper",
		},
	)

	// ProviderDuration tracks content/search/LLM provider call duration.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_provider_duration_seconds",
			Help:    "Content provider call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"provider", "status"},
	)

	// StoreErrors tracks session-store and durable-store failures.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_store_errors_total",
			Help: "Session store and durable store errors",
		},
		[]string{"store"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records a processed conversation turn.
func RecordTurn(channel, stage string) {
	TurnsTotal.WithLabelValues(channel, stage).Inc()
}

// RecordArchive records an archived conversation.
func RecordArchive(reason string) {
	ArchivesTotal.WithLabelValues(reason).Inc()
}

// RecordProviderCall records a content provider call.
func RecordProviderCall(provider, status string, duration float64) {
	ProviderDuration.WithLabelValues(provider, status).Observe(duration)
}
