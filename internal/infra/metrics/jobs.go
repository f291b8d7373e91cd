package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobRetriesTotal, jobsReapedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_jobs_processed_total",
		Help: "Total number of queue jobs processed, labeled by kind and outcome.",
	},
	[]string{"kind", "outcome"}, // outcome: 'completed', 'failed', 'dead', 'retried'
)

var jobRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_job_retries_total",
		Help: "Total number of job retry re-schedules, labeled by failure kind.",
	},
	[]string{"error_kind"},
)

var jobsReapedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "task_jobs_reaped_total",
		Help: "Total number of stalled jobs returned to the queue.",
	},
)

func IncJob(kind, outcome string) {
	jobsProcessedTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncJobRetry(errorKind string) {
	jobRetriesTotal.WithLabelValues(norm(errorKind)).Inc()
}

func AddJobsReaped(n int) {
	jobsReapedTotal.Add(float64(n))
}
