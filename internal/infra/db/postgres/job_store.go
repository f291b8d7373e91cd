// File: internal/infra/db/postgres/job_store.go
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

var _ repository.JobStore = (*jobStore)(nil)

// jobStore is the durable queue backend. Dedupe relies on a partial unique
// index; payload is part of the key so each workspace gets its own cleanup
// job (execute jobs carry an empty payload, keeping them one per task):
//
//	CREATE UNIQUE INDEX jobs_active_per_task
//	  ON jobs (task_id, kind, payload) WHERE state IN ('waiting','active');
type jobStore struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobStore(pool *pgxpool.Pool, tm repository.TransactionManager) *jobStore {
	return &jobStore{pool: pool, tm: tm}
}

const jobColumns = `id, task_id, kind, payload, weight, state, attempts, max_attempts,
       available_at, heartbeat_at, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var kind, state string
	err := row.Scan(
		&j.ID, &j.TaskID, &kind, &j.Payload, &j.Weight, &state, &j.Attempts, &j.MaxAttempts,
		&j.AvailableAt, &j.HeartbeatAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Kind = model.JobKind(kind)
	j.State = model.JobState(state)
	return &j, nil
}

func (s *jobStore) Insert(ctx context.Context, job *model.Job) (bool, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	const q = `
INSERT INTO jobs (id, task_id, kind, payload, weight, state, attempts, max_attempts,
                  available_at, heartbeat_at, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	_, err := execSQL(ctx, s.pool, nil, q,
		job.ID, job.TaskID, job.Kind, job.Payload, job.Weight, job.State,
		job.Attempts, job.MaxAttempts, job.AvailableAt, job.HeartbeatAt,
		job.LastError, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *jobStore) Claim(ctx context.Context, now time.Time) (*model.Job, error) {
	var claimed *model.Job

	err := s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetch = `
SELECT ` + jobColumns + `
FROM jobs
WHERE state = 'waiting' AND available_at <= $1
ORDER BY weight DESC, created_at, id
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, s.pool, tx, fetch, now)
		if err != nil {
			return err
		}
		j, err := scanJob(row)
		if err != nil {
			return err
		}

		j.State = model.JobStateActive
		j.Attempts++
		j.HeartbeatAt = now
		j.UpdatedAt = now

		const mark = `
UPDATE jobs SET state = $2, attempts = $3, heartbeat_at = $4, updated_at = $4
WHERE id = $1;`
		if _, err := execSQL(ctx, s.pool, tx, mark, j.ID, j.State, j.Attempts, now); err != nil {
			return err
		}
		claimed = j
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return claimed, nil
}

func (s *jobStore) Update(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()
	const q = `
UPDATE jobs
SET state = $2, attempts = $3, available_at = $4, last_error = $5, updated_at = $6
WHERE id = $1;`
	cmd, err := execSQL(ctx, s.pool, nil, q,
		job.ID, job.State, job.Attempts, job.AvailableAt, job.LastError, job.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *jobStore) CancelByTask(ctx context.Context, taskID string) (bool, error) {
	const q = `
UPDATE jobs SET state = 'cancelled', updated_at = now()
WHERE task_id = $1 AND kind = 'execute' AND state = 'waiting';`
	cmd, err := execSQL(ctx, s.pool, nil, q, taskID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *jobStore) Touch(ctx context.Context, jobID string, at time.Time) error {
	const q = `
UPDATE jobs SET heartbeat_at = $2, updated_at = $2
WHERE id = $1 AND state = 'active';`
	cmd, err := execSQL(ctx, s.pool, nil, q, jobID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *jobStore) ReapStalled(ctx context.Context, cutoff time.Time) (int, error) {
	// the next claim counts the attempt again
	const q = `
UPDATE jobs
SET state = 'waiting', attempts = GREATEST(attempts - 1, 0),
    available_at = now(), updated_at = now()
WHERE state = 'active' AND heartbeat_at < $1;`
	cmd, err := execSQL(ctx, s.pool, nil, q, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (s *jobStore) Stats(ctx context.Context) (model.QueueStats, error) {
	const q = `
SELECT
  count(*) FILTER (WHERE state = 'waiting' AND available_at <= now())  AS waiting,
  count(*) FILTER (WHERE state = 'active')                             AS active,
  count(*) FILTER (WHERE state = 'completed')                          AS completed,
  count(*) FILTER (WHERE state IN ('failed','dead'))                   AS failed,
  count(*) FILTER (WHERE state = 'waiting' AND available_at > now())   AS delayed
FROM jobs;`

	row, err := pickRow(ctx, s.pool, nil, q)
	if err != nil {
		return model.QueueStats{}, err
	}
	var st model.QueueStats
	if err := row.Scan(&st.Waiting, &st.Active, &st.Completed, &st.Failed, &st.Delayed); err != nil {
		return model.QueueStats{}, domain.ErrReadDatabaseRow
	}
	return st, nil
}
