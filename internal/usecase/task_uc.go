// File: internal/usecase/task_uc.go
package usecase

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

// Enqueuer is the slice of the queue the task use-case needs: scheduling
// an execute job on acceptance and pulling it back on cancellation.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskID string, kind model.JobKind, prio model.TaskPriority, delay time.Duration) (*model.Job, bool, error)
	Cancel(ctx context.Context, taskID string) (bool, error)
}

// SubmitLocker serializes task submission per user so two concurrent
// submissions cannot both pass the balance pre-check. Optional; a nil
// locker disables the guard (single-node test setups).
type SubmitLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TaskUseCase accepts, reads and cancels tasks. Execution itself belongs
// to the dispatcher; this layer only decides whether a task may enter the
// queue and whether it may leave it.
type TaskUseCase struct {
	tasks    repository.TaskRepository
	results  repository.ResultRepository
	credits  *CreditUseCase
	queue    Enqueuer
	progress repository.ProgressStore
	locker   SubmitLocker
	log      *zerolog.Logger
}

func NewTaskUseCase(
	tasks repository.TaskRepository,
	results repository.ResultRepository,
	credits *CreditUseCase,
	queue Enqueuer,
	progress repository.ProgressStore,
	locker SubmitLocker,
	logger *zerolog.Logger,
) *TaskUseCase {
	l := logger.With().Str("component", "task_uc").Logger()
	return &TaskUseCase{
		tasks: tasks, results: results, credits: credits,
		queue: queue, progress: progress, locker: locker, log: &l,
	}
}

// Create validates the task, pre-checks the user's balance against an
// advisory estimate and, if both pass, persists the task and schedules its
// execute job. Rejection happens before anything is written.
func (uc *TaskUseCase) Create(ctx context.Context, t *model.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if uc.locker != nil {
		token, err := uc.locker.TryLock(ctx, "task_submit:"+t.UserID, 30*time.Second)
		if err != nil {
			return domain.E(domain.KindValidation, "another submission for this user is in flight", err)
		}
		defer func() { _ = uc.locker.Unlock(ctx, "task_submit:"+t.UserID, token) }()
	}
	estimate, err := uc.credits.Estimate(ctx, t.Model, t.Prompt)
	if err != nil {
		return err
	}
	balance, err := uc.credits.Balance(ctx, t.UserID)
	if err != nil {
		return err
	}
	if balance < estimate {
		metrics.IncPrecheckBlocked()
		return domain.E(domain.KindInsufficientCredits, "estimated cost exceeds balance", nil)
	}

	now := time.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = model.TaskStatusPending
	t.EstimatedCredits = estimate
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := uc.tasks.Save(ctx, nil, t); err != nil {
		return err
	}
	if _, _, err := uc.queue.Enqueue(ctx, t.ID, model.JobKindExecute, t.Priority, 0); err != nil {
		return err
	}
	uc.log.Info().Str("task_id", t.ID).Str("user_id", t.UserID).
		Str("type", string(t.Type)).Str("priority", string(t.Priority)).
		Int64("estimate", estimate).Msg("task accepted")
	return nil
}

// Cancel stops a task. A still-queued task is cancelled synchronously
// (job removed, status flipped); a running one is only flagged, and the
// dispatcher honors the flag at its next checkpoint. Terminal tasks
// cannot be cancelled.
func (uc *TaskUseCase) Cancel(ctx context.Context, taskID string) error {
	t, err := uc.tasks.FindByID(ctx, nil, taskID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return domain.E(domain.KindValidation, "task already finished", nil)
	}

	if _, err := uc.queue.Cancel(ctx, taskID); err != nil {
		return err
	}
	ok, err := uc.tasks.TransitionStatus(ctx, nil, taskID, model.TaskStatusPending, model.TaskStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		// Already claimed by a worker; flag it and let the pipeline
		// notice between stages.
		flagged, err := uc.tasks.TransitionStatus(ctx, nil, taskID, model.TaskStatusRunning, model.TaskStatusCancelled)
		if err != nil {
			return err
		}
		if !flagged {
			// finished between the status read and the transitions
			return domain.E(domain.KindValidation, "task already finished", nil)
		}
	}
	uc.log.Info().Str("task_id", taskID).Bool("was_queued", ok).Msg("task cancelled")
	return nil
}

func (uc *TaskUseCase) Get(ctx context.Context, taskID string) (*model.Task, error) {
	return uc.tasks.FindByID(ctx, nil, taskID)
}

func (uc *TaskUseCase) GetResult(ctx context.Context, taskID string) (*model.Result, error) {
	return uc.results.FindByTaskID(ctx, nil, taskID)
}

// Progress reports 0-100 for a task; finished tasks whose progress entry
// already expired report 100 when completed, 0 otherwise.
func (uc *TaskUseCase) Progress(ctx context.Context, taskID string) (int, error) {
	pct, err := uc.progress.Get(ctx, taskID)
	if err == nil {
		return pct, nil
	}
	t, terr := uc.tasks.FindByID(ctx, nil, taskID)
	if terr != nil {
		return 0, terr
	}
	if t.Status == model.TaskStatusCompleted {
		return 100, nil
	}
	return 0, nil
}
