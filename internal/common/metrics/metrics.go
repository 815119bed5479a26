// internal/common/metrics/metrics.go
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Match requests by outcome",
		},
		[]string{"outcome"},
	)

	EligiblePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_eligible_pool_size",
			Help:    "Donors surviving the compatibility filter per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	FilterRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_filter_rejections_total",
			Help: "Donor eligibility checks by first failing clause",
		},
		[]string{"clause"},
	)

	OracleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_score_duration_seconds",
			Help:    "Scoring oracle latency per batch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"oracle"},
	)

	LabeledPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeler_pairs_total",
			Help: "Training pairs emitted by label",
		},
		[]string{"label"},
	)

	DonorPoolCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_pool_cache_total",
			Help: "Donor pool cache lookups by result",
		},
		[]string{"result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Hospital notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)
