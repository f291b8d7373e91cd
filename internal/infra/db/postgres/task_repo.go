package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
)

var _ repository.TaskRepository = (*taskRepo)(nil)

type taskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *taskRepo {
	return &taskRepo{pool: pool}
}

func (r *taskRepo) Save(ctx context.Context, tx repository.Tx, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()

	const q = `
INSERT INTO tasks (id, user_id, repo_owner, repo_name, repo_url, model, prompt,
                   source_branch, target_branch, status, type, priority,
                   estimated_credits, credits_used, failure_reason,
                   created_at, updated_at, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  credits_used = EXCLUDED.credits_used,
  failure_reason = EXCLUDED.failure_reason,
  updated_at = EXCLUDED.updated_at,
  started_at = EXCLUDED.started_at,
  finished_at = EXCLUDED.finished_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.RepoOwner, t.RepoName, t.RepoURL, t.Model, t.Prompt,
		t.SourceBranch, t.TargetBranch, t.Status, t.Type, t.Priority,
		t.EstimatedCredits, t.CreditsUsed, t.FailureReason,
		t.CreatedAt, t.UpdatedAt, t.StartedAt, t.FinishedAt)
	return err
}

func (r *taskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Task, error) {
	const q = `
SELECT id, user_id, repo_owner, repo_name, repo_url, model, prompt,
       source_branch, target_branch, status, type, priority,
       estimated_credits, credits_used, failure_reason,
       created_at, updated_at, started_at, finished_at
FROM tasks WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var t model.Task
	var status, typ, prio string
	err = row.Scan(
		&t.ID, &t.UserID, &t.RepoOwner, &t.RepoName, &t.RepoURL, &t.Model, &t.Prompt,
		&t.SourceBranch, &t.TargetBranch, &status, &typ, &prio,
		&t.EstimatedCredits, &t.CreditsUsed, &t.FailureReason,
		&t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	t.Status = model.TaskStatus(status)
	t.Type = model.TaskType(typ)
	t.Priority = model.TaskPriority(prio)
	return &t, nil
}

func (r *taskRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.TaskStatus) (bool, error) {
	now := time.Now()
	const q = `
UPDATE tasks
SET status = $3,
    updated_at = $4,
    started_at = CASE WHEN $3 = 'running' THEN $4 ELSE started_at END,
    finished_at = CASE WHEN $3 IN ('completed','failed','cancelled') THEN $4 ELSE finished_at END
WHERE id = $1 AND status = $2;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, from, to, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
