package job

import (
	"errors"
	"time"
)

// Type identifies the pipeline stage a job drives.
type Type string

const (
	TypeExtractText Type = "EXTRACT_TEXT"
	TypeExtractID   Type = "EXTRACT_ID"
	TypeEmbed       Type = "EMBED"
)

func (t Type) Valid() bool {
	switch t {
	case TypeExtractText, TypeExtractID, TypeEmbed:
		return true
	}
	return false
}

// Status is the job lifecycle state. The only legal transitions are
// pending -> running -> completed|failed; both terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Standard stage priorities. Higher runs first, so a fresh document is
// extracted before identifier scanning, and embedding runs last.
const (
	PriorityExtractText = 10
	PriorityExtractID   = 5
	PriorityEmbed       = 1
)

var (
	// ErrNotFound indicates the job id does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrNotPending indicates a claim attempt on a job that is not pending.
	// Concurrent claimers see this instead of both succeeding.
	ErrNotPending = errors.New("job is not pending")

	// ErrNotRunning indicates a terminal transition on a job that is not running.
	ErrNotRunning = errors.New("job is not running")

	// ErrInvalidType indicates an unknown job type at a boundary.
	ErrInvalidType = errors.New("invalid job type")
)

type Job struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Type       Type       `json:"type"`
	Status     Status     `json:"status"`
	Priority   int        `json:"priority"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatusSummary is a snapshot of the queue: per-status counts plus the job
// currently executing, if any.
type StatusSummary struct {
	Pending    int  `json:"pending"`
	Running    int  `json:"running"`
	Completed  int  `json:"completed"`
	Failed     int  `json:"failed"`
	CurrentJob *Job `json:"current_job"`
}
