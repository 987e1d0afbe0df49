package task

import (
	"context"
)

// Task type labels used for observability and metadata. The scheduler never
// branches on the type; it only records it.
const (
	// TaskTypeUnknown is applied when a submission carries no type label.
	TaskTypeUnknown = "unknown"

	// TaskTypeDocumentSummary represents the task type for summarizing documents
	TaskTypeDocumentSummary = "document_summary"

	// TaskTypeDocumentDelete represents the task type for deleting a single document
	TaskTypeDocumentDelete = "document_delete"

	// TaskTypeDocumentBatchDelete represents the task type for deleting a batch of documents
	TaskTypeDocumentBatchDelete = "document_batch_delete"

	// TaskTypeMaintenance represents recurring housekeeping work
	TaskTypeMaintenance = "maintenance"
)

// Task represents a unit of background work to be executed by the scheduler.
// Implementations adapt whatever they do to this single contract at the
// boundary; the scheduler interprets only the returned result or error,
// never the work's semantics.
// Version: 1.0
type Task interface {
	// Execute runs the task logic. The supplied context carries the task's
	// execution deadline and is cancelled when an abort is requested;
	// implementations should observe it and return promptly once it is done.
	Execute(ctx context.Context) (any, error)
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(ctx context.Context) (any, error)

// Execute implements Task.
func (f TaskFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}
