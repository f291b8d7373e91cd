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

var _ repository.ModelPricingRepository = (*pricingRepo)(nil)

type pricingRepo struct {
	pool *pgxpool.Pool
}

func NewPricingRepo(pool *pgxpool.Pool) *pricingRepo {
	return &pricingRepo{pool: pool}
}

func (r *pricingRepo) GetByModelName(ctx context.Context, tx repository.Tx, name string) (*model.ModelPricing, error) {
	const q = `
SELECT id, model_name, input_credits_per_1k, output_credits_per_1k, active, created_at, updated_at
FROM model_pricing WHERE model_name = $1 AND active;`

	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, err
	}
	var p model.ModelPricing
	err = row.Scan(&p.ID, &p.ModelName, &p.InputCreditsPer1K, &p.OutputCreditsPer1K,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}

func (r *pricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	const q = `
INSERT INTO model_pricing (id, model_name, input_credits_per_1k, output_credits_per_1k, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (model_name) DO UPDATE SET
  input_credits_per_1k = EXCLUDED.input_credits_per_1k,
  output_credits_per_1k = EXCLUDED.output_credits_per_1k,
  active = EXCLUDED.active,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.ModelName, p.InputCreditsPer1K, p.OutputCreditsPer1K, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}
