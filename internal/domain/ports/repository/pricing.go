package repository

import (
	"context"

	"ai-coding-tasks/internal/domain/model"
)

type ModelPricingRepository interface {
	GetByModelName(ctx context.Context, tx Tx, name string) (*model.ModelPricing, error)
	Save(ctx context.Context, tx Tx, p *model.ModelPricing) error
}
