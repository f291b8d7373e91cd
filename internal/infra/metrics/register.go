package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu         sync.Mutex
	collectors []prometheus.Collector
	registered bool
)

// register queues collectors for MustRegister; called from package init
// funcs so each concern file owns its own metrics.
func register(cs ...prometheus.Collector) {
	mu.Lock()
	defer mu.Unlock()
	collectors = append(collectors, cs...)
}

// MustRegister registers every collector with the default registry (idempotent).
func MustRegister() {
	mu.Lock()
	defer mu.Unlock()
	if registered {
		return
	}
	prometheus.MustRegister(collectors...)
	registered = true
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
