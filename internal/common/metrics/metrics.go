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

	MatchCandidatesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_scored_total",
			Help: "Candidates scored by the matching engine",
		},
		[]string{"engine"},
	)

	MatchCandidatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_rejected_total",
			Help: "Candidates dropped from a batch",
		},
		[]string{"engine", "reason"},
	)

	MatchScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_score",
			Help:    "Distribution of final compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"engine"},
	)

	MatchWeightWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_weight_warnings_total",
			Help: "Weights that went negative after preference adjustment",
		},
		[]string{"engine", "dimension"},
	)
)

// TrackJob marks a job active and returns a func that records its outcome.
// An empty errorCode means the job completed.
func TrackJob(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()

	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}

// EngineRecorder feeds matching engine events into the Prometheus vectors,
// labelled with the engine name (usually the category).
type EngineRecorder struct {
	engine string
}

func NewEngineRecorder(engine string) *EngineRecorder {
	if engine == "" {
		engine = "default"
	}
	return &EngineRecorder{engine: engine}
}

func (r *EngineRecorder) CandidateScored(score int) {
	MatchCandidatesScored.WithLabelValues(r.engine).Inc()
	MatchScore.WithLabelValues(r.engine).Observe(float64(score))
}

func (r *EngineRecorder) CandidateRejected(reason string) {
	MatchCandidatesRejected.WithLabelValues(r.engine, reason).Inc()
}

func (r *EngineRecorder) WeightWarning(dimension string) {
	MatchWeightWarnings.WithLabelValues(r.engine, dimension).Inc()
}
