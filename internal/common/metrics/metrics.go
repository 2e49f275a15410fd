// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "content_testing"

// Job lifecycle, labelled by Zeebe task type.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_completed_total",
		Help:      "Jobs completed, by task type.",
	}, []string{"task_type"})

	WorkerJobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_failed_total",
		Help:      "Jobs failed, by task type and error code.",
	}, []string{"task_type", "error_code"})

	WorkerJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Time spent in a job handler.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"task_type"})

	WorkerJobsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_active",
		Help:      "Jobs currently being handled.",
	}, []string{"task_type"})
)

// Domain counters.
var (
	RematchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rematch_total",
		Help:      "Rematch passes by outcome.",
	}, []string{"outcome"})

	ContentTestVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdicts_total",
		Help:      "Content test runs by verdict.",
	}, []string{"verdict"})

	GradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "grader",
		Name:      "request_duration_seconds",
		Help:      "Round trip to the grading service.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	ProblemCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "problem_cache",
		Name:      "lookups_total",
		Help:      "Problem XML cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

// ObserveGrading records one grading call that started at start.
func ObserveGrading(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GradingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
