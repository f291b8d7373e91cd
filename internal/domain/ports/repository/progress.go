package repository

import "context"

// ProgressStore tracks per-task execution progress on a 0-100 scale.
// Set must keep the observed value monotonically increasing: a lower value
// than the current one is ignored.
type ProgressStore interface {
	Set(ctx context.Context, taskID string, pct int) error
	Get(ctx context.Context, taskID string) (int, error)
	Clear(ctx context.Context, taskID string) error
}
