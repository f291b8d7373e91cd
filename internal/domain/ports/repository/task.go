package repository

import (
	"context"

	"ai-coding-tasks/internal/domain/model"
)

type TaskRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Task) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Task, error)

	// TransitionStatus flips status from `from` to `to` only if the task is
	// currently in `from`; returns false when the guard does not hold. This
	// is how `running` stays reachable only once per task.
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.TaskStatus) (bool, error)
}
