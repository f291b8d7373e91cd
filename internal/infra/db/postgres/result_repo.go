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

var _ repository.ResultRepository = (*resultRepo)(nil)

type resultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *resultRepo {
	return &resultRepo{pool: pool}
}

func (r *resultRepo) Save(ctx context.Context, tx repository.Tx, res *model.Result) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO results (id, task_id, type, content, pr_url, files_changed, lines_generated, tokens_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (task_id) DO UPDATE SET
  type = EXCLUDED.type,
  content = EXCLUDED.content,
  pr_url = EXCLUDED.pr_url,
  files_changed = EXCLUDED.files_changed,
  lines_generated = EXCLUDED.lines_generated,
  tokens_used = EXCLUDED.tokens_used;`
	_, err := execSQL(ctx, r.pool, tx, q,
		res.ID, res.TaskID, res.Type, res.Content, res.PRURL,
		res.FilesChanged, res.LinesGenerated, res.TokensUsed, res.CreatedAt)
	return err
}

func (r *resultRepo) FindByTaskID(ctx context.Context, tx repository.Tx, taskID string) (*model.Result, error) {
	const q = `
SELECT id, task_id, type, content, pr_url, files_changed, lines_generated, tokens_used, created_at
FROM results WHERE task_id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, taskID)
	if err != nil {
		return nil, err
	}
	var res model.Result
	var typ string
	err = row.Scan(&res.ID, &res.TaskID, &typ, &res.Content, &res.PRURL,
		&res.FilesChanged, &res.LinesGenerated, &res.TokensUsed, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	res.Type = model.ResultType(typ)
	return &res, nil
}
