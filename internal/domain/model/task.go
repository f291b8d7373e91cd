package model

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal statuses are never left again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

type TaskType string

const (
	TaskTypeDebug         TaskType = "debug"
	TaskTypeAsk           TaskType = "ask"
	TaskTypeDocumentation TaskType = "documentation"
	TaskTypeArchitect     TaskType = "architect"
	TaskTypePRReview      TaskType = "pr_review"
	TaskTypeAsync         TaskType = "async"
)

// Mutates reports whether this task type applies code changes to the
// workspace (and may therefore open a pull request).
func (t TaskType) Mutates() bool {
	return t == TaskTypeDebug || t == TaskTypeAsync
}

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeDebug, TaskTypeAsk, TaskTypeDocumentation, TaskTypeArchitect, TaskTypePRReview, TaskTypeAsync:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Weight orders queue claims: higher weight is claimed first.
func (p TaskPriority) Weight() int {
	switch p {
	case TaskPriorityHigh:
		return 30
	case TaskPriorityLow:
		return 10
	default:
		return 20
	}
}

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a user-submitted unit of AI-assisted work against a repository.
// Created by the API layer, mutated only by the dispatcher.
type Task struct {
	ID               string
	UserID           string
	RepoOwner        string
	RepoName         string
	RepoURL          string
	Model            string
	Prompt           string
	SourceBranch     string
	TargetBranch     string
	Status           TaskStatus
	Type             TaskType
	Priority         TaskPriority
	EstimatedCredits int64
	CreditsUsed      int64
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// Validate checks the fields the pipeline depends on.
func (t *Task) Validate() error {
	switch {
	case strings.TrimSpace(t.UserID) == "":
		return errValidation("user id is empty")
	case strings.TrimSpace(t.Prompt) == "":
		return errValidation("prompt is empty")
	case strings.TrimSpace(t.RepoOwner) == "" || strings.TrimSpace(t.RepoName) == "":
		return errValidation("repository reference is incomplete")
	case !t.Type.Valid():
		return errValidation("unknown task type " + string(t.Type))
	case !t.Priority.Valid():
		return errValidation("unknown priority " + string(t.Priority))
	}
	return nil
}
