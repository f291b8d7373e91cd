// File: internal/infra/queue/queue.go
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
	"ai-coding-tasks/internal/infra/metrics"
)

// Config is the scheduling policy: attempt ceiling, exponential backoff and
// the minimum delay applied to low-priority work so bursts of it never
// preempt higher tiers immediately.
type Config struct {
	MaxAttempts      int
	BackoffBase      time.Duration
	LowPriorityDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.LowPriorityDelay <= 0 {
		c.LowPriorityDelay = 5 * time.Second
	}
}

// Queue owns the scheduling policy over a pluggable durable store.
type Queue struct {
	store repository.JobStore
	cfg   Config
	log   *zerolog.Logger
}

func New(store repository.JobStore, cfg Config, logger *zerolog.Logger) *Queue {
	cfg.applyDefaults()
	l := logger.With().Str("component", "queue").Logger()
	return &Queue{store: store, cfg: cfg, log: &l}
}

// Enqueue schedules a job for the task. It is idempotent per (task, kind):
// when a waiting or active job already exists the call is a no-op and the
// second return value is false.
func (q *Queue) Enqueue(ctx context.Context, taskID string, kind model.JobKind, prio model.TaskPriority, delay time.Duration) (*model.Job, bool, error) {
	if taskID == "" {
		return nil, false, domain.ErrInvalidArgument
	}
	if prio == model.TaskPriorityLow && delay < q.cfg.LowPriorityDelay {
		delay = q.cfg.LowPriorityDelay
	}
	now := time.Now()
	job := &model.Job{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		Kind:        kind,
		Weight:      prio.Weight(),
		State:       model.JobStateWaiting,
		MaxAttempts: q.cfg.MaxAttempts,
		AvailableAt: now.Add(delay),
		CreatedAt:   now,
	}
	inserted, err := q.store.Insert(ctx, job)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		q.log.Debug().Str("task_id", taskID).Str("kind", string(kind)).Msg("enqueue deduplicated")
		return nil, false, nil
	}
	return job, true, nil
}

// EnqueueCleanup schedules a delayed workspace-removal job, one per
// workspace: the payload is part of the store's dedupe key, so each retry
// attempt's directory gets its own job. Cleanup runs at low weight so it
// never preempts pending executions; the workspace id travels in the
// payload because the workspace itself is not persisted.
func (q *Queue) EnqueueCleanup(ctx context.Context, taskID, workspaceID string, delay time.Duration) (*model.Job, bool, error) {
	if taskID == "" || workspaceID == "" {
		return nil, false, domain.ErrInvalidArgument
	}
	now := time.Now()
	job := &model.Job{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		Kind:        model.JobKindCleanup,
		Payload:     workspaceID,
		Weight:      model.TaskPriorityLow.Weight(),
		State:       model.JobStateWaiting,
		MaxAttempts: q.cfg.MaxAttempts,
		AvailableAt: now.Add(delay),
		CreatedAt:   now,
	}
	inserted, err := q.store.Insert(ctx, job)
	if err != nil {
		return nil, false, err
	}
	return job, inserted, nil
}

// Claim hands out the next runnable job: highest weight first, FIFO within
// a weight tier, never before its AvailableAt. Returns domain.ErrNotFound
// when the queue is idle.
func (q *Queue) Claim(ctx context.Context) (*model.Job, error) {
	return q.store.Claim(ctx, time.Now())
}

// Ack finalizes a claimed job as completed.
func (q *Queue) Ack(ctx context.Context, job *model.Job) error {
	job.State = model.JobStateCompleted
	metrics.IncJob(string(job.Kind), "completed")
	return q.store.Update(ctx, job)
}

// Nack reports a retryable failure. The job is re-scheduled with
// exponential backoff until the attempt ceiling, then moved to the dead
// state; the boolean reports that terminal case so the caller can fail the
// owning task.
func (q *Queue) Nack(ctx context.Context, job *model.Job, cause error) (dead bool, err error) {
	job.LastError = cause.Error()
	if job.Attempts >= job.MaxAttempts {
		job.State = model.JobStateDead
		metrics.IncJob(string(job.Kind), "dead")
		q.log.Warn().Str("job_id", job.ID).Str("task_id", job.TaskID).
			Int("attempts", job.Attempts).Msg("job exhausted retries, moving to dead")
		return true, q.store.Update(ctx, job)
	}
	backoff := q.cfg.BackoffBase << (job.Attempts - 1)
	job.State = model.JobStateWaiting
	job.AvailableAt = time.Now().Add(backoff)
	metrics.IncJob(string(job.Kind), "retried")
	metrics.IncJobRetry(string(domain.KindOf(cause)))
	q.log.Info().Str("job_id", job.ID).Str("task_id", job.TaskID).
		Int("attempts", job.Attempts).Dur("backoff", backoff).Msg("job re-scheduled")
	return false, q.store.Update(ctx, job)
}

// Fail finalizes a claimed job as failed without retrying (fatal errors).
func (q *Queue) Fail(ctx context.Context, job *model.Job, cause error) error {
	job.State = model.JobStateFailed
	job.LastError = cause.Error()
	metrics.IncJob(string(job.Kind), "failed")
	return q.store.Update(ctx, job)
}

// Release finalizes a claimed job whose task was cancelled underneath it.
func (q *Queue) Release(ctx context.Context, job *model.Job) error {
	job.State = model.JobStateCancelled
	metrics.IncJob(string(job.Kind), "cancelled")
	return q.store.Update(ctx, job)
}

// Cancel removes a not-yet-started execute job synchronously; it has no
// effect on a job already claimed by a worker.
func (q *Queue) Cancel(ctx context.Context, taskID string) (bool, error) {
	return q.store.CancelByTask(ctx, taskID)
}

// Touch refreshes the worker heartbeat on a claimed job.
func (q *Queue) Touch(ctx context.Context, jobID string) error {
	return q.store.Touch(ctx, jobID, time.Now())
}

// ReapStalled returns jobs whose worker stopped heartbeating to the
// waiting state so another worker can claim them.
func (q *Queue) ReapStalled(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := q.store.ReapStalled(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddJobsReaped(n)
		q.log.Warn().Int("count", n).Msg("stalled jobs returned to queue")
	}
	return n, nil
}

// Stats is the snapshot polled by operational tooling.
func (q *Queue) Stats(ctx context.Context) (model.QueueStats, error) {
	return q.store.Stats(ctx)
}
