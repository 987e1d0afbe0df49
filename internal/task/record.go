package task

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders pending work; lower values dispatch first.
type Priority int

// The five priority levels, most urgent first.
const (
	PriorityCritical   Priority = 1
	PriorityHigh       Priority = 2
	PriorityMedium     Priority = 3
	PriorityLow        Priority = 4
	PriorityBackground Priority = 5
)

// IsValid reports whether p is one of the five defined levels.
func (p Priority) IsValid() bool {
	return p >= PriorityCritical && p <= PriorityBackground
}

// String returns the level's name for logs and API responses.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// Status represents the current state of a scheduled task
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// IsTerminal reports whether no further transitions can occur from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// TaskRecord holds the full state of one submitted unit of work. The
// scheduler owns every mutation; callers only ever see snapshot copies.
type TaskRecord struct {
	ID          uuid.UUID
	TaskType    string
	Priority    Priority
	Status      Status
	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Timeout bounds one execution attempt. Zero means the scheduler's
	// default applies.
	Timeout time.Duration

	RetryCount int
	MaxRetries int

	// Metadata is opaque key-value data carried through unchanged.
	Metadata map[string]string

	Result       any
	ErrorMessage string

	// CancelRequested marks a cooperative abort that has been asked for but
	// not yet acknowledged. Distinct from the terminal Cancelled status.
	CancelRequested bool
}

// snapshot returns a copy safe to hand outside the scheduler. Metadata and
// timestamp pointers are copied so callers cannot mutate scheduler state.
func (r *TaskRecord) snapshot() *TaskRecord {
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
