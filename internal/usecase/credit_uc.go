// File: internal/usecase/credit_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/domain/ports/repository"
	"ai-coding-tasks/internal/infra/metrics"
)

// CreditUseCase owns the credit ledger: advisory pre-flight estimates,
// settlement debits after successful execution, and operational top-ups.
// Every balance mutation goes through a serializable transaction with the
// balance row locked, so concurrent debits can never drive it negative.
type CreditUseCase struct {
	txm     repository.TransactionManager
	credits repository.CreditRepository
	pricing repository.ModelPricingRepository
	gateway adapter.AIGateway
	log     *zerolog.Logger
}

func NewCreditUseCase(
	txm repository.TransactionManager,
	credits repository.CreditRepository,
	pricing repository.ModelPricingRepository,
	gateway adapter.AIGateway,
	logger *zerolog.Logger,
) *CreditUseCase {
	l := logger.With().Str("component", "credit_uc").Logger()
	return &CreditUseCase{txm: txm, credits: credits, pricing: pricing, gateway: gateway, log: &l}
}

func (uc *CreditUseCase) Balance(ctx context.Context, userID string) (int64, error) {
	return uc.credits.Balance(ctx, nil, userID)
}

// Estimate converts the prompt into an advisory credit figure before the
// task is accepted. The completion side is unknowable up front; assume it
// mirrors the prompt, which over-charges short answers and under-charges
// long ones but keeps the pre-check cheap and deterministic.
func (uc *CreditUseCase) Estimate(ctx context.Context, modelName, prompt string) (int64, error) {
	p, err := uc.pricing.GetByModelName(ctx, nil, modelName)
	if err != nil {
		return 0, err
	}
	promptTokens := uc.gateway.EstimateTokens(modelName, prompt)
	return p.Cost(promptTokens, promptTokens), nil
}

// Settle converts actual token usage into credits and debits them. Called
// by the dispatcher only after a successful execution.
func (uc *CreditUseCase) Settle(ctx context.Context, userID, taskID, modelName string, usage adapter.Usage) (int64, error) {
	p, err := uc.pricing.GetByModelName(ctx, nil, modelName)
	if err != nil {
		return 0, err
	}
	amount := p.Cost(usage.PromptTokens, usage.CompletionTokens)
	desc := fmt.Sprintf("task execution (%s, %d tokens)", modelName, usage.TotalTokens)
	if err := uc.Debit(ctx, userID, taskID, amount, desc); err != nil {
		return 0, err
	}
	return amount, nil
}

// Debit removes amount credits from the user's balance and appends the
// ledger row, atomically. Sufficiency is re-validated under the row lock;
// the earlier pre-check is advisory only.
func (uc *CreditUseCase) Debit(ctx context.Context, userID, taskID string, amount int64, description string) error {
	if amount < 0 {
		return domain.ErrInvalidArgument
	}
	err := uc.txm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		balance, err := uc.credits.BalanceForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance < amount {
			return domain.E(domain.KindInsufficientCredits,
				fmt.Sprintf("balance %d below charge %d", balance, amount), nil)
		}
		after := balance - amount
		if err := uc.credits.SetBalance(ctx, tx, userID, after); err != nil {
			return err
		}
		return uc.credits.AppendTransaction(ctx, tx, &model.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			TaskID:       taskID,
			Amount:       -amount,
			BalanceAfter: after,
			Description:  description,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return err
	}
	metrics.AddCreditsDebited(amount)
	uc.log.Info().Str("user_id", userID).Str("task_id", taskID).Int64("amount", amount).Msg("credits debited")
	return nil
}

// Credit grants balance (top-up). TaskID is left empty on the ledger row.
func (uc *CreditUseCase) Credit(ctx context.Context, userID string, amount int64, description string) error {
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	return uc.txm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		balance, err := uc.credits.BalanceForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		after := balance + amount
		if err := uc.credits.SetBalance(ctx, tx, userID, after); err != nil {
			return err
		}
		return uc.credits.AppendTransaction(ctx, tx, &model.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: after,
			Description:  description,
			CreatedAt:    time.Now(),
		})
	})
}

func (uc *CreditUseCase) History(ctx context.Context, userID string) ([]*model.CreditTransaction, error) {
	return uc.credits.ListTransactions(ctx, nil, userID)
}
