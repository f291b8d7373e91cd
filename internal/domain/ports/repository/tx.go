package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function inside a database transaction,
// passing the transaction handle via `tx`.
//
// Keeps use-case interfaces clean (no driver types leaking out) while
// letting repository methods that accept a Tx run SELECT ... FOR UPDATE
// against the tx-bound connection. The concrete type of `tx` is
// infra-defined (pgx.Tx for Postgres, nil for the in-memory backend);
// repositories must gracefully accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
