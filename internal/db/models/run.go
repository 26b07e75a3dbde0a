package models

import "time"

// RunKind is the pipeline stage a run executed.
type RunKind string

const (
	RunSubtitle RunKind = "subtitle"
	RunClip     RunKind = "clip"
	RunEmbed    RunKind = "embed"
)

// RunStatus represents the current state of a run
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Run is one pipeline invocation as recorded in the history table.
type Run struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	Status      RunStatus  `json:"status"`
	SourceURL   string     `json:"source_url,omitempty"`
	Params      string     `json:"params,omitempty"` // section, language or input names
	Artifact    string     `json:"artifact,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
