package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ai-coding-tasks/internal/domain/model"
)

func init() { register(queueDepth) }

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "task_queue_depth",
		Help: "Current number of jobs per queue state.",
	},
	[]string{"state"},
)

// SetQueueDepth publishes a queue snapshot; refreshed by the reaper tick.
func SetQueueDepth(s model.QueueStats) {
	queueDepth.WithLabelValues("waiting").Set(float64(s.Waiting))
	queueDepth.WithLabelValues("active").Set(float64(s.Active))
	queueDepth.WithLabelValues("completed").Set(float64(s.Completed))
	queueDepth.WithLabelValues("failed").Set(float64(s.Failed))
	queueDepth.WithLabelValues("delayed").Set(float64(s.Delayed))
}
