package task

import (
	"time"

	"github.com/google/uuid"
)

// submitOptions collects per-task settings resolved at submission time.
// Defaults come from the scheduler's configuration.
type submitOptions struct {
	id         uuid.UUID
	priority   Priority
	timeout    time.Duration
	maxRetries int
	taskType   string
	metadata   map[string]string
}

// SubmitOption customizes a single submission.
type SubmitOption func(*submitOptions)

// WithTaskID sets a caller-supplied task identifier instead of a generated
// one. Submitting a second task under an identifier that is still tracked
// fails.
func WithTaskID(id uuid.UUID) SubmitOption {
	return func(o *submitOptions) { o.id = id }
}

// WithPriority sets the task's dispatch priority. Defaults to PriorityMedium.
func WithPriority(p Priority) SubmitOption {
	return func(o *submitOptions) { o.priority = p }
}

// WithTimeout bounds a single execution attempt, overriding the scheduler's
// default timeout.
func WithTimeout(d time.Duration) SubmitOption {
	return func(o *submitOptions) { o.timeout = d }
}

// WithMaxRetries bounds how many times a failing task is re-queued before
// it is marked Failed.
func WithMaxRetries(n int) SubmitOption {
	return func(o *submitOptions) { o.maxRetries = n }
}

// WithTaskType labels the task for logs and statistics; it never affects
// scheduling behavior.
func WithTaskType(taskType string) SubmitOption {
	return func(o *submitOptions) { o.taskType = taskType }
}

// WithMetadata attaches opaque key-value data carried on the record
// unchanged.
func WithMetadata(metadata map[string]string) SubmitOption {
	return func(o *submitOptions) { o.metadata = metadata }
}
