// internal/common/metrics/metrics.go
package metrics

import (
	"time"

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

	// Siting engine

	SitingPointsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siting_grid_points_scored_total",
			Help: "Candidate grid points scored, by outcome (scored or fallback)",
		},
		[]string{"outcome"},
	)

	SitingBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siting_batch_duration_seconds",
			Help:    "Duration of a recommendation batch",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
	)

	SitingRecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siting_recommendations_returned",
			Help:    "Number of recommendations returned per batch",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	SitingSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siting_sink_failures_total",
			Help: "Non-fatal failures writing run results to cache, index or event stream",
		},
		[]string{"sink"},
	)
)

// RecordBatch records one finished recommendation batch.
func RecordBatch(gridPoints, failed, returned int, duration time.Duration) {
	SitingPointsScored.WithLabelValues("scored").Add(float64(gridPoints - failed))
	SitingPointsScored.WithLabelValues("fallback").Add(float64(failed))
	SitingBatchDuration.Observe(duration.Seconds())
	SitingRecommendationsReturned.Observe(float64(returned))
}

// RecordJob records the outcome of one job; errorCode is empty on success.
func RecordJob(taskType string, start time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
