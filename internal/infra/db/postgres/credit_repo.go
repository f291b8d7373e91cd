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

var _ repository.CreditRepository = (*creditRepo)(nil)

type creditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *creditRepo {
	return &creditRepo{pool: pool}
}

func (r *creditRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	return r.balance(ctx, tx, userID, false)
}

func (r *creditRepo) BalanceForUpdate(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	return r.balance(ctx, tx, userID, true)
}

func (r *creditRepo) balance(ctx context.Context, tx repository.Tx, userID string, forUpdate bool) (int64, error) {
	q := `SELECT balance FROM credit_balances WHERE user_id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID)
	if err != nil {
		return 0, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil // unknown users hold zero
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return bal, nil
}

func (r *creditRepo) SetBalance(ctx context.Context, tx repository.Tx, userID string, balance int64) error {
	const q = `
INSERT INTO credit_balances (user_id, balance, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now();`
	_, err := execSQL(ctx, r.pool, tx, q, userID, balance)
	return err
}

func (r *creditRepo) AppendTransaction(ctx context.Context, tx repository.Tx, t *model.CreditTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO credit_transactions (id, user_id, task_id, amount, balance_after, description, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7);`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.TaskID, t.Amount, t.BalanceAfter, t.Description, t.CreatedAt)
	return err
}

func (r *creditRepo) ListTransactions(ctx context.Context, tx repository.Tx, userID string) ([]*model.CreditTransaction, error) {
	const q = `
SELECT id, user_id, COALESCE(task_id, ''), amount, balance_after, description, created_at
FROM credit_transactions
WHERE user_id = $1
ORDER BY created_at;`

	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CreditTransaction
	for rows.Next() {
		var t model.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.TaskID, &t.Amount, &t.BalanceAfter, &t.Description, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
