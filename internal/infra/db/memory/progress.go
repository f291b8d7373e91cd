package memory

import (
	"context"
	"sync"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/repository"
)

var _ repository.ProgressStore = (*ProgressStore)(nil)

// ProgressStore keeps per-task progress in memory; values only move up.
type ProgressStore struct {
	mu    sync.RWMutex
	store map[string]int
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{store: make(map[string]int)}
}

func (s *ProgressStore) Set(ctx context.Context, taskID string, pct int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pct > s.store[taskID] {
		s.store[taskID] = pct
	}
	return nil
}

func (s *ProgressStore) Get(ctx context.Context, taskID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pct, ok := s.store[taskID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return pct, nil
}

func (s *ProgressStore) Clear(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, taskID)
	return nil
}

// Observed reports whether any progress event was ever recorded; test helper.
func (s *ProgressStore) Observed(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.store[taskID]
	return ok
}
