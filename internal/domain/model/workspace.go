package model

import "time"

// Workspace is an ephemeral per-task clone of the target repository on
// local storage. It is owned by exactly one task, never shared, and exists
// only on the filesystem — it is not persisted.
type Workspace struct {
	ID        string
	TaskID    string
	Path      string
	CreatedAt time.Time
}
