package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/infra/metrics"
	"ai-coding-tasks/internal/infra/queue"
)

// Reaper periodically returns jobs with stale worker heartbeats to the
// queue and refreshes the queue-depth gauge.
type Reaper struct {
	interval time.Duration
	timeout  time.Duration
	queue    *queue.Queue
	log      *zerolog.Logger
}

func NewReaper(interval, heartbeatTimeout time.Duration, q *queue.Queue, logger *zerolog.Logger) *Reaper {
	l := logger.With().Str("component", "Reaper").Logger()
	return &Reaper{interval: interval, timeout: heartbeatTimeout, queue: q, log: &l}
}

func (w *Reaper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reaper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.queue.ReapStalled(ctx, w.timeout); err != nil {
				w.log.Error().Err(err).Msg("reaper error")
			}
			stats, err := w.queue.Stats(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("queue stats error")
				continue
			}
			metrics.SetQueueDepth(stats)
		}
	}
}
