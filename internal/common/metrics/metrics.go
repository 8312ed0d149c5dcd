// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_insights_generated_total",
			Help: "Total number of insights produced, by type",
		},
		[]string{"insight_type"},
	)

	PredictionsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_predictions_emitted_total",
			Help: "Total number of predictions produced, by metric",
		},
		[]string{"metric"},
	)

	PredictionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_predictions_skipped_total",
			Help: "Series skipped for insufficient samples, by metric",
		},
		[]string{"metric"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_batch_duration_seconds",
			Help: "Duration of batch pipeline runs in seconds",
		},
		[]string{"batch_type"},
	)

	BatchBranchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_batch_branch_failures_total",
			Help: "Parallel branches that failed and were skipped, by batch type",
		},
		[]string{"batch_type"},
	)

	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_embedding_cache_hits_total",
			Help: "Embedding cache hits",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_embedding_cache_misses_total",
			Help: "Embedding cache misses",
		},
	)

	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_store_failures_total",
			Help: "Per-item store failures, by store",
		},
		[]string{"store"},
	)

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
)
