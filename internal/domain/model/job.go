package model

import "time"

type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateDead      JobState = "dead"
	JobStateCancelled JobState = "cancelled"
)

type JobKind string

const (
	JobKindExecute JobKind = "execute"
	JobKindCleanup JobKind = "cleanup"
)

// Job is the queue-layer scheduling wrapper around one task execution
// attempt. TaskID doubles as the dedupe key: at most one waiting or active
// job exists per (task, kind) at any time.
type Job struct {
	ID          string
	TaskID      string
	Kind        JobKind
	Payload     string // workspace id for cleanup jobs
	Weight      int
	State       JobState
	Attempts    int
	MaxAttempts int
	AvailableAt time.Time
	HeartbeatAt time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QueueStats is the snapshot polled by operational tooling. Delayed counts
// waiting jobs whose AvailableAt is still in the future; dead jobs count as
// failed.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}
