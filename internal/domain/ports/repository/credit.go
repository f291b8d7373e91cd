package repository

import (
	"context"

	"ai-coding-tasks/internal/domain/model"
)

type CreditRepository interface {
	// Balance reads the user's current balance; missing users hold zero.
	Balance(ctx context.Context, tx Tx, userID string) (int64, error)

	// BalanceForUpdate reads the balance while locking the row for the
	// duration of the enclosing transaction.
	BalanceForUpdate(ctx context.Context, tx Tx, userID string) (int64, error)

	SetBalance(ctx context.Context, tx Tx, userID string, balance int64) error

	// AppendTransaction writes one immutable ledger row.
	AppendTransaction(ctx context.Context, tx Tx, t *model.CreditTransaction) error

	ListTransactions(ctx context.Context, tx Tx, userID string) ([]*model.CreditTransaction, error)
}
