package model

import "time"

type ResultType string

const (
	ResultTypeCodeChanges   ResultType = "code_changes"
	ResultTypeDocumentation ResultType = "documentation"
	ResultTypeAnalysis      ResultType = "analysis"
	ResultTypePRCreated     ResultType = "pr_created"
	ResultTypeError         ResultType = "error"
)

// Result is the materialized outcome of a task, created exactly once by the
// result processor.
type Result struct {
	ID             string
	TaskID         string
	Type           ResultType
	Content        string
	PRURL          string
	FilesChanged   int
	LinesGenerated int
	TokensUsed     int
	CreatedAt      time.Time
}
