package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	SummaryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_summary_requests_total",
			Help: "Summary runs by entity type and outcome code",
		},
		[]string{"entity_type", "code"},
	)

	SummaryStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taste_summary_stage_duration_seconds",
			Help:    "Duration of each summary pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taste_upstream_requests_total",
			Help: "Calls to the insights and completion APIs by HTTP status class",
		},
		[]string{"service", "status"},
	)

	ResultItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taste_insights_result_items",
			Help:    "Number of entities returned per insights query",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
		[]string{"entity_type"},
	)
)

// StatusClass buckets an HTTP status (or 0 for transport errors) into a low-cardinality label.
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
