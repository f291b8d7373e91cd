package repository

import (
	"context"
	"time"

	"ai-coding-tasks/internal/domain/model"
)

// JobStore is the durable backend under the queue's scheduling policy:
// Postgres in production, in-memory for tests. The policy itself (priority
// weights, delays, backoff, dead-lettering) lives in internal/infra/queue.
type JobStore interface {
	// Insert persists a new job unless a waiting or active job already
	// exists for the same (task, kind, payload); returns false for that
	// no-op case.
	Insert(ctx context.Context, job *model.Job) (bool, error)

	// Claim atomically picks the runnable job with the highest weight
	// (FIFO within a weight), marks it active, increments its attempt
	// count and stamps the heartbeat. Returns domain.ErrNotFound when
	// nothing is runnable.
	Claim(ctx context.Context, now time.Time) (*model.Job, error)

	// Update persists state/attempt/schedule changes of a claimed job.
	Update(ctx context.Context, job *model.Job) error

	// CancelByTask removes a not-yet-claimed execute job for the task;
	// returns false when no waiting job existed (already claimed or done).
	CancelByTask(ctx context.Context, taskID string) (bool, error)

	// Touch refreshes the heartbeat of an active job.
	Touch(ctx context.Context, jobID string, at time.Time) error

	// ReapStalled returns active jobs whose heartbeat is older than cutoff
	// to the waiting state without consuming an attempt.
	ReapStalled(ctx context.Context, cutoff time.Time) (int, error)

	Stats(ctx context.Context) (model.QueueStats, error)
}
