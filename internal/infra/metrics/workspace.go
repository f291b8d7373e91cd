package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workspacesCleanedTotal) }

var workspacesCleanedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "task_workspaces_cleaned_total",
		Help: "Total number of ephemeral workspaces removed by cleanup jobs.",
	},
)

func IncWorkspaceCleaned() {
	workspacesCleanedTotal.Inc()
}
