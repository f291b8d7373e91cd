package model

import "time"

// CreditTransaction is an immutable ledger row. BalanceAfter carries the
// user's balance as it stood once this row was applied, so the ledger is
// auditable without replaying it.
type CreditTransaction struct {
	ID           string
	UserID       string
	TaskID       string // empty for top-ups
	Amount       int64  // signed: debits are negative
	BalanceAfter int64
	Description  string
	CreatedAt    time.Time
}
