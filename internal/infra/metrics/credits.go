package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditsDebitedTotal, creditPrecheckBlocks) }

var creditsDebitedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "credits_debited_total",
		Help: "Sum of credits debited for completed tasks.",
	},
)

var creditPrecheckBlocks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "credit_precheck_blocks_total",
		Help: "Count of task submissions rejected for insufficient balance.",
	},
)

func AddCreditsDebited(amount int64) {
	creditsDebitedTotal.Add(float64(amount))
}

func IncPrecheckBlocked() {
	creditPrecheckBlocks.Inc()
}
