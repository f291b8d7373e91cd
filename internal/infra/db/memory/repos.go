// File: internal/infra/db/memory/repos.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
)

// The in-memory repositories back tests and dev mode. A single mutex in the
// transaction manager serializes WithTx callbacks, which is enough to stand
// in for the serializable isolation the Postgres backend provides.

var _ repository.TransactionManager = (*TxManager)(nil)

type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager { return &TxManager{} }

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// ---- tasks ----

var _ repository.TaskRepository = (*TaskRepo)(nil)

type TaskRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Task
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{store: make(map[string]*model.Task)}
}

func (r *TaskRepo) Save(ctx context.Context, _ repository.Tx, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	cp := *t
	r.store[t.ID] = &cp
	return nil
}

func (r *TaskRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TaskRepo) TransitionStatus(ctx context.Context, _ repository.Tx, id string, from, to model.TaskStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	now := time.Now()
	t.UpdatedAt = now
	switch to {
	case model.TaskStatusRunning:
		t.StartedAt = &now
	case model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled:
		t.FinishedAt = &now
	}
	return true, nil
}

// ---- credits ----

var _ repository.CreditRepository = (*CreditRepo)(nil)

type CreditRepo struct {
	mu       sync.RWMutex
	balances map[string]int64
	ledger   []*model.CreditTransaction
}

func NewCreditRepo() *CreditRepo {
	return &CreditRepo{balances: make(map[string]int64)}
}

func (r *CreditRepo) Balance(ctx context.Context, _ repository.Tx, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[userID], nil
}

func (r *CreditRepo) BalanceForUpdate(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	// row locking is provided by the TxManager mutex here
	return r.Balance(ctx, tx, userID)
}

func (r *CreditRepo) SetBalance(ctx context.Context, _ repository.Tx, userID string, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = balance
	return nil
}

func (r *CreditRepo) AppendTransaction(ctx context.Context, _ repository.Tx, t *model.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	r.ledger = append(r.ledger, &cp)
	return nil
}

func (r *CreditRepo) ListTransactions(ctx context.Context, _ repository.Tx, userID string) ([]*model.CreditTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.CreditTransaction
	for _, t := range r.ledger {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- results ----

var _ repository.ResultRepository = (*ResultRepo)(nil)

type ResultRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Result // by task id
}

func NewResultRepo() *ResultRepo {
	return &ResultRepo{store: make(map[string]*model.Result)}
}

func (r *ResultRepo) Save(ctx context.Context, _ repository.Tx, res *model.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	cp := *res
	r.store[res.TaskID] = &cp
	return nil
}

func (r *ResultRepo) FindByTaskID(ctx context.Context, _ repository.Tx, taskID string) (*model.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.store[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

// ---- model pricing ----

var _ repository.ModelPricingRepository = (*PricingRepo)(nil)

type PricingRepo struct {
	mu    sync.RWMutex
	store map[string]*model.ModelPricing
}

func NewPricingRepo() *PricingRepo {
	return &PricingRepo{store: make(map[string]*model.ModelPricing)}
}

func (r *PricingRepo) GetByModelName(ctx context.Context, _ repository.Tx, name string) (*model.ModelPricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.store[name]
	if !ok || !p.Active {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PricingRepo) Save(ctx context.Context, _ repository.Tx, p *model.ModelPricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.store[p.ModelName] = &cp
	return nil
}
