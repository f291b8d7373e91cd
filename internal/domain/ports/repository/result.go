package repository

import (
	"context"

	"ai-coding-tasks/internal/domain/model"
)

type ResultRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Result) error
	FindByTaskID(ctx context.Context, tx Tx, taskID string) (*model.Result, error)
}
