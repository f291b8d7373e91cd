package postgres

import (
	"context"
	"sync"
	"time"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
)

var _ repository.ModelPricingRepository = (*CachedPricingRepo)(nil)

// CachedPricingRepo is a read-through cache over a pricing repository.
// Rates change rarely and every estimate/settlement reads one, so a short
// TTL keeps the hot path off the database.
type CachedPricingRepo struct {
	inner repository.ModelPricingRepository
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPricing
}

type cachedPricing struct {
	p       *model.ModelPricing
	expires time.Time
}

func NewCachedPricingRepo(inner repository.ModelPricingRepository, ttl time.Duration) *CachedPricingRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedPricingRepo{inner: inner, ttl: ttl, cache: make(map[string]cachedPricing)}
}

func (r *CachedPricingRepo) GetByModelName(ctx context.Context, tx repository.Tx, name string) (*model.ModelPricing, error) {
	r.mu.RLock()
	c, ok := r.cache[name]
	r.mu.RUnlock()
	if ok && time.Now().Before(c.expires) {
		cp := *c.p
		return &cp, nil
	}

	p, err := r.inner.GetByModelName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[name] = cachedPricing{p: p, expires: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	cp := *p
	return &cp, nil
}

func (r *CachedPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error {
	if err := r.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.cache, p.ModelName)
	r.mu.Unlock()
	return nil
}
