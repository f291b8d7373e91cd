// File: internal/infra/db/memory/job_store.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/repository"
)

var _ repository.JobStore = (*JobStore)(nil)

// JobStore is the in-memory queue backend used by tests and dev mode. It
// mirrors the Postgres store's semantics: dedupe per (task, kind, payload),
// claim ordered by weight then insertion order, heartbeat-based reaping.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	seq  map[string]int64 // insertion order, FIFO tie-break within a weight
	next int64
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*model.Job),
		seq:  make(map[string]int64),
	}
}

func dedupeHeld(state model.JobState) bool {
	return state == model.JobStateWaiting || state == model.JobStateActive
}

func (s *JobStore) Insert(ctx context.Context, job *model.Job) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.TaskID == job.TaskID && j.Kind == job.Kind && j.Payload == job.Payload && dedupeHeld(j.State) {
			return false, nil
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	cp := *job
	s.jobs[job.ID] = &cp
	s.next++
	s.seq[job.ID] = s.next
	return true, nil
}

func (s *JobStore) Claim(ctx context.Context, now time.Time) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pick *model.Job
	for _, j := range s.jobs {
		if j.State != model.JobStateWaiting || j.AvailableAt.After(now) {
			continue
		}
		if pick == nil || j.Weight > pick.Weight ||
			(j.Weight == pick.Weight && s.seq[j.ID] < s.seq[pick.ID]) {
			pick = j
		}
	}
	if pick == nil {
		return nil, domain.ErrNotFound
	}
	pick.State = model.JobStateActive
	pick.Attempts++
	pick.HeartbeatAt = now
	pick.UpdatedAt = now
	cp := *pick
	return &cp, nil
}

func (s *JobStore) Update(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	job.UpdatedAt = time.Now()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *JobStore) CancelByTask(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.TaskID == taskID && j.Kind == model.JobKindExecute && j.State == model.JobStateWaiting {
			j.State = model.JobStateCancelled
			j.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *JobStore) Touch(ctx context.Context, jobID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.State != model.JobStateActive {
		return domain.ErrNotFound
	}
	j.HeartbeatAt = at
	j.UpdatedAt = at
	return nil
}

func (s *JobStore) ReapStalled(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now()
	for _, j := range s.jobs {
		if j.State == model.JobStateActive && j.HeartbeatAt.Before(cutoff) {
			j.State = model.JobStateWaiting
			// the re-claim will count the attempt again
			if j.Attempts > 0 {
				j.Attempts--
			}
			j.AvailableAt = now
			j.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *JobStore) Stats(ctx context.Context) (model.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st model.QueueStats
	now := time.Now()
	for _, j := range s.jobs {
		switch j.State {
		case model.JobStateWaiting:
			if j.AvailableAt.After(now) {
				st.Delayed++
			} else {
				st.Waiting++
			}
		case model.JobStateActive:
			st.Active++
		case model.JobStateCompleted:
			st.Completed++
		case model.JobStateFailed, model.JobStateDead:
			st.Failed++
		}
	}
	return st, nil
}

// Snapshot returns a copy of every job; test helper.
func (s *JobStore) Snapshot() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}
