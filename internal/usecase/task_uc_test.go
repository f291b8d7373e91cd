// File: internal/usecase/task_uc_test.go
package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
	"ai-coding-tasks/internal/infra/db/memory"
)

type taskFixture struct {
	uc      *TaskUseCase
	tasks   *memory.TaskRepo
	credits *memory.CreditRepo
	queue   *fakeEnqueuer
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	ctx := context.Background()
	tasks := memory.NewTaskRepo()
	results := memory.NewResultRepo()
	credits := memory.NewCreditRepo()
	pricing := memory.NewPricingRepo()
	if err := pricing.Save(ctx, nil, &model.ModelPricing{
		ModelName:          "gpt-4o-mini",
		InputCreditsPer1K:  10,
		OutputCreditsPer1K: 30,
		Active:             true,
	}); err != nil {
		t.Fatalf("seed pricing: %v", err)
	}
	logger := zerolog.Nop()
	creditUC := NewCreditUseCase(memory.NewTxManager(), credits, pricing, &fakeGateway{}, &logger)
	queue := &fakeEnqueuer{}
	uc := NewTaskUseCase(tasks, results, creditUC, queue, memory.NewProgressStore(), nil, &logger)
	return &taskFixture{uc: uc, tasks: tasks, credits: credits, queue: queue}
}

func validTask() *model.Task {
	return &model.Task{
		UserID:       "user-1",
		RepoOwner:    "acme",
		RepoName:     "widgets",
		Model:        "gpt-4o-mini",
		Prompt:       "fix the flaky widget test",
		SourceBranch: "main",
		Type:         model.TaskTypeDebug,
		Priority:     model.TaskPriorityMedium,
	}
}

func TestTaskUseCase_CreatePersistsAndEnqueues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	task := validTask()
	if err := f.uc.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" || task.Status != model.TaskStatusPending {
		t.Fatalf("task not initialized: id=%q status=%s", task.ID, task.Status)
	}
	if task.EstimatedCredits <= 0 {
		t.Fatalf("expected a positive estimate, got %d", task.EstimatedCredits)
	}
	if len(f.queue.enqueued) != 1 || f.queue.enqueued[0] != task.ID {
		t.Fatalf("expected one enqueue for %s, got %v", task.ID, f.queue.enqueued)
	}
	if _, err := f.uc.Get(ctx, task.ID); err != nil {
		t.Fatalf("task not persisted: %v", err)
	}
}

func TestTaskUseCase_CreateRejectsInvalid(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)

	task := validTask()
	task.Prompt = "  "
	err := f.uc.Create(context.Background(), task)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.queue.enqueued) != 0 {
		t.Fatal("invalid task must not reach the queue")
	}
}

func TestTaskUseCase_CreateRejectsInsufficientCredits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	// no balance seeded; estimate is positive for any non-empty prompt

	err := f.uc.Create(ctx, validTask())
	if domain.KindOf(err) != domain.KindInsufficientCredits {
		t.Fatalf("expected insufficient-credits rejection, got %v", err)
	}
	if len(f.queue.enqueued) != 0 {
		t.Fatal("rejected task must not reach the queue")
	}
}

func TestTaskUseCase_CancelQueuedTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	task := validTask()
	if err := f.uc.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.queue.cancelOK = true
	if err := f.uc.Cancel(ctx, task.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := f.uc.Get(ctx, task.ID)
	if got.Status != model.TaskStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestTaskUseCase_CancelRunningFlagsTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	task := validTask()
	if err := f.uc.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	// simulate a worker having claimed the task
	if ok, _ := f.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusPending, model.TaskStatusRunning); !ok {
		t.Fatal("setup transition failed")
	}

	if err := f.uc.Cancel(ctx, task.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := f.uc.Get(ctx, task.ID)
	if got.Status != model.TaskStatusCancelled {
		t.Fatalf("running task should be flagged cancelled, got %s", got.Status)
	}
}

func TestTaskUseCase_CancelTerminalFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	task := validTask()
	if err := f.uc.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _ = f.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusPending, model.TaskStatusRunning)
	_, _ = f.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusRunning, model.TaskStatusCompleted)

	if err := f.uc.Cancel(ctx, task.ID); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for terminal task, got %v", err)
	}
}

func TestTaskUseCase_ProgressFallsBackToStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	task := validTask()
	if err := f.uc.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	// no progress entry yet: a pending task reports zero
	if pct, err := f.uc.Progress(ctx, task.ID); err != nil || pct != 0 {
		t.Fatalf("expected 0%%, got %d (%v)", pct, err)
	}

	_, _ = f.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusPending, model.TaskStatusRunning)
	_, _ = f.tasks.TransitionStatus(ctx, nil, task.ID, model.TaskStatusRunning, model.TaskStatusCompleted)
	if pct, err := f.uc.Progress(ctx, task.ID); err != nil || pct != 100 {
		t.Fatalf("completed task without a progress entry should report 100%%, got %d (%v)", pct, err)
	}
}

type fakeLocker struct {
	held    bool
	locks   int
	unlocks int
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	if l.held {
		return "", domain.ErrTaskActive
	}
	l.locks++
	return "tok", nil
}

func (l *fakeLocker) Unlock(_ context.Context, _, token string) error {
	if token != "tok" {
		return domain.ErrTaskActive
	}
	l.unlocks++
	return nil
}

func TestTaskUseCase_CreateHeldSubmitLockRejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTaskFixture(t)
	_ = f.credits.SetBalance(ctx, nil, "user-1", 1000)

	lock := &fakeLocker{held: true}
	f.uc.locker = lock

	err := f.uc.Create(ctx, validTask())
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error while lock is held, got %v", err)
	}
	if len(f.queue.enqueued) != 0 {
		t.Fatal("rejected task must not reach the queue")
	}

	lock.held = false
	if err := f.uc.Create(ctx, validTask()); err != nil {
		t.Fatalf("create after release: %v", err)
	}
	if lock.locks != 1 || lock.unlocks != 1 {
		t.Fatalf("lock/unlock counts: %d/%d", lock.locks, lock.unlocks)
	}
}

// staleStatusRepo serves FindByID from a stale snapshot, simulating a task
// that finishes between the status read and the cancel transitions.
type staleStatusRepo struct {
	*memory.TaskRepo
	stale model.TaskStatus
}

func (r *staleStatusRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Task, error) {
	task, err := r.TaskRepo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	task.Status = r.stale
	return task, nil
}

func TestTaskUseCase_CancelCompletionRaceReportsFinished(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := zerolog.Nop()

	tasks := memory.NewTaskRepo()
	task := validTask()
	task.ID = "task-1"
	task.Status = model.TaskStatusCompleted
	if err := tasks.Save(ctx, nil, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	creditUC := NewCreditUseCase(memory.NewTxManager(), memory.NewCreditRepo(), memory.NewPricingRepo(), &fakeGateway{}, &logger)
	uc := NewTaskUseCase(
		&staleStatusRepo{TaskRepo: tasks, stale: model.TaskStatusRunning},
		memory.NewResultRepo(), creditUC, &fakeEnqueuer{}, memory.NewProgressStore(), nil, &logger,
	)

	if err := uc.Cancel(ctx, "task-1"); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error when nothing was cancelled, got %v", err)
	}
	got, _ := tasks.FindByID(ctx, nil, "task-1")
	if got.Status != model.TaskStatusCompleted {
		t.Fatalf("completed task must stay completed, got %s", got.Status)
	}
}
