package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanso_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Streak and calendar computations served by the engine.
	EngineEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_engine_evaluations_total",
			Help: "Total number of streak, calendar and due evaluations",
		},
		[]string{"operation", "status"}, // status: success, failed
	)

	StreakJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_streak_jobs_total",
			Help: "Streak recomputation jobs by outcome",
		},
		[]string{"result"}, // result: updated, unchanged, failed, dropped
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_cache_lookups_total",
			Help: "Habit cache lookups by outcome",
		},
		[]string{"result"}, // result: hit, miss
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_rate_limit_decisions_total",
			Help: "Rate limiter decisions",
		},
		[]string{"decision"}, // decision: allowed, rejected, skipped
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementEngineEvaluation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	EngineEvaluations.WithLabelValues(operation, status).Inc()
}

func IncrementStreakJob(result string) {
	StreakJobs.WithLabelValues(result).Inc()
}

func IncrementCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

func IncrementRateLimitDecision(decision string) {
	RateLimitDecisions.WithLabelValues(decision).Inc()
}
