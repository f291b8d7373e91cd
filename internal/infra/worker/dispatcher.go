// File: internal/infra/worker/dispatcher.go
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/domain/ports/repository"
	"ai-coding-tasks/internal/infra/logging"
	"ai-coding-tasks/internal/infra/metrics"
	"ai-coding-tasks/internal/infra/queue"
	"ai-coding-tasks/internal/infra/workspace"
	"ai-coding-tasks/internal/usecase"
)

// Dispatcher drives the execution pipeline: it polls the queue, runs each
// claimed job through workspace preparation, the AI gateway, result
// materialization and credit settlement, and finalizes the owning task.
//
// Between stages the job heartbeat is refreshed and the task status
// re-read, so cancellation is honored at stage boundaries and a worker
// that dies mid-stage is caught by the reaper.
type Dispatcher struct {
	queue    *queue.Queue
	tasks    repository.TaskRepository
	progress repository.ProgressStore
	credits  *usecase.CreditUseCase
	results  *usecase.ResultUseCase
	gateway  adapter.AIGateway
	ws       *workspace.Manager

	pollInterval time.Duration
	cleanupDelay time.Duration
	log          *zerolog.Logger
}

func NewDispatcher(
	q *queue.Queue,
	tasks repository.TaskRepository,
	progress repository.ProgressStore,
	credits *usecase.CreditUseCase,
	results *usecase.ResultUseCase,
	gateway adapter.AIGateway,
	ws *workspace.Manager,
	pollInterval, cleanupDelay time.Duration,
	logger *zerolog.Logger,
) *Dispatcher {
	l := logger.With().Str("component", "dispatcher").Logger()
	return &Dispatcher{
		queue: q, tasks: tasks, progress: progress,
		credits: credits, results: results, gateway: gateway, ws: ws,
		pollInterval: pollInterval, cleanupDelay: cleanupDelay, log: &l,
	}
}

// Start polls for claimable jobs and hands them to the pool.
// This should be run in a goroutine.
func (d *Dispatcher) Start(ctx context.Context, pool *Pool) {
	d.log.Info().Msg("dispatcher started")
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				d.processOne(ctx)
				return nil
			})
		}
	}
}

func (d *Dispatcher) processOne(ctx context.Context) {
	job, err := d.queue.Claim(ctx)
	if err != nil {
		if err != domain.ErrNotFound {
			d.log.Error().Err(err).Msg("claim failed")
		}
		return
	}

	start := time.Now()
	switch job.Kind {
	case model.JobKindCleanup:
		d.runCleanup(ctx, job)
	default:
		d.runExecute(ctx, job)
	}
	d.log.Info().Str("job_id", job.ID).Str("task_id", job.TaskID).
		Str("kind", string(job.Kind)).Str("state", string(job.State)).
		Dur("duration_ms", time.Since(start)).Msg("job finished")
}

func (d *Dispatcher) runExecute(ctx context.Context, job *model.Job) {
	task, err := d.tasks.FindByID(ctx, nil, job.TaskID)
	if err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("task lookup failed")
		_ = d.queue.Fail(ctx, job, err)
		return
	}
	if task.Status.Terminal() {
		// cancelled (or otherwise finished) between enqueue and claim
		_ = d.queue.Release(ctx, job)
		return
	}
	ctx = logging.WithUserID(logging.WithTaskID(ctx, task.ID), task.UserID)

	// Holding the claimed job makes this worker the sole executor, so a
	// task already running here is a retry attempt or a takeover after
	// the reaper returned a dead worker's job.
	ok, err := d.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusPending, model.TaskStatusRunning)
	if err != nil {
		_ = d.queue.Fail(ctx, job, err)
		return
	}
	if !ok && task.Status != model.TaskStatusRunning {
		// the task moved somewhere unexpected between read and transition
		_ = d.queue.Release(ctx, job)
		return
	}
	_ = d.progress.Set(ctx, task.ID, 5)

	ws, err := d.runPipeline(ctx, job, task)
	if ws != nil {
		if _, _, cerr := d.queue.EnqueueCleanup(ctx, task.ID, ws.ID, d.cleanupDelay); cerr != nil {
			logging.With(ctx, d.log).Error().Err(cerr).Msg("cleanup enqueue failed")
		}
	}
	if err != nil {
		d.handleFailure(ctx, job, task, err)
	}
}

// runPipeline executes the stages for one attempt. The returned workspace
// (possibly non-nil even on error) must be scheduled for cleanup by the
// caller.
func (d *Dispatcher) runPipeline(ctx context.Context, job *model.Job, task *model.Task) (*model.Workspace, error) {
	log := logging.With(ctx, d.log)

	ws, err := d.ws.Create(task.ID)
	if err != nil {
		return nil, err
	}
	_ = d.progress.Set(ctx, task.ID, 10)
	if d.checkpoint(ctx, job, task.ID) {
		_ = d.queue.Release(ctx, job)
		return ws, nil
	}

	if err := d.ws.Clone(ctx, ws, task.RepoOwner, task.RepoName, task.SourceBranch); err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 25)
	if d.checkpoint(ctx, job, task.ID) {
		_ = d.queue.Release(ctx, job)
		return ws, nil
	}

	files, listing, err := d.ws.CollectContext(ws)
	if err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 40)

	resp, err := d.gateway.Execute(ctx, task.Model, &adapter.AIRequest{
		Type:       task.Type,
		Prompt:     task.Prompt,
		RepoOwner:  task.RepoOwner,
		RepoName:   task.RepoName,
		Branch:     task.SourceBranch,
		Files:      files,
		DirListing: listing,
	})
	if err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 70)
	if d.checkpoint(ctx, job, task.ID) {
		_ = d.queue.Release(ctx, job)
		return ws, nil
	}

	result, err := d.results.Materialize(ctx, task, ws, resp)
	if err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 85)

	spent, err := d.credits.Settle(ctx, task.UserID, task.ID, task.Model, resp.Usage)
	if err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 95)

	if ok, err := d.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusRunning, model.TaskStatusCompleted); err != nil || !ok {
		// cancelled at the last moment; the result and debit stand
		log.Warn().Err(err).Msg("completion transition did not apply")
		_ = d.queue.Release(ctx, job)
		return ws, nil
	}
	task.Status = model.TaskStatusCompleted
	task.CreditsUsed = spent
	task.UpdatedAt = time.Now()
	if err := d.tasks.Save(ctx, nil, task); err != nil {
		log.Error().Err(err).Msg("task save failed after completion")
	}

	if err := d.queue.Ack(ctx, job); err != nil {
		return ws, err
	}
	_ = d.progress.Set(ctx, task.ID, 100)
	log.Info().Str("result_type", string(result.Type)).
		Int64("credits", spent).Msg("task completed")
	return ws, nil
}

// handleFailure classifies the error: retryable kinds go back to the queue
// with backoff until the attempt ceiling, everything else finalizes the
// task. The user-facing failure reason is always the kind's category,
// never internal detail.
func (d *Dispatcher) handleFailure(ctx context.Context, job *model.Job, task *model.Task, cause error) {
	log := logging.With(ctx, d.log)
	kind := domain.KindOf(cause)
	log.Error().Err(cause).Str("kind", string(kind)).
		Int("attempts", job.Attempts).Msg("job attempt failed")

	if kind.Retryable() {
		dead, err := d.queue.Nack(ctx, job, cause)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("nack failed")
		}
		if !dead {
			return
		}
	} else if err := d.queue.Fail(ctx, job, cause); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("job fail update failed")
	}

	d.finalizeFailed(ctx, task, kind)
}

func (d *Dispatcher) finalizeFailed(ctx context.Context, task *model.Task, kind domain.Kind) {
	log := logging.With(ctx, d.log)
	category := kind.Category()
	ok, err := d.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusRunning, model.TaskStatusFailed)
	if err != nil {
		log.Error().Err(err).Msg("failure transition errored")
		return
	}
	if ok {
		task.Status = model.TaskStatusFailed
		task.FailureReason = category
		task.UpdatedAt = time.Now()
		if err := d.tasks.Save(ctx, nil, task); err != nil {
			log.Error().Err(err).Msg("task save failed after failure")
		}
		if err := d.results.SaveFailure(ctx, task.ID, category); err != nil {
			log.Error().Err(err).Msg("failure result save failed")
		}
	}
}

// checkpoint refreshes the heartbeat and reports whether the task has been
// flagged cancelled since the last stage.
func (d *Dispatcher) checkpoint(ctx context.Context, job *model.Job, taskID string) bool {
	_ = d.queue.Touch(ctx, job.ID)
	t, err := d.tasks.FindByID(ctx, nil, taskID)
	if err != nil {
		return false
	}
	return t.Status == model.TaskStatusCancelled
}

func (d *Dispatcher) runCleanup(ctx context.Context, job *model.Job) {
	if err := d.ws.Cleanup(job.Payload); err != nil {
		if _, nerr := d.queue.Nack(ctx, job, err); nerr != nil {
			d.log.Error().Err(nerr).Str("job_id", job.ID).Msg("cleanup nack failed")
		}
		return
	}
	_ = d.progress.Clear(ctx, job.TaskID)
	if err := d.queue.Ack(ctx, job); err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("cleanup ack failed")
	}
	metrics.IncWorkspaceCleaned()
}
