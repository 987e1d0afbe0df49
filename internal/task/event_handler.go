package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/events"
)

// SummaryTaskFactory creates summary tasks from a document id. Satisfied by
// *DocumentSummaryTaskFactory.
type SummaryTaskFactory interface {
	CreateTask(documentID uuid.UUID) (Task, error)
}

// Submitter accepts work for asynchronous execution. Satisfied by
// *Scheduler.
type Submitter interface {
	Submit(ctx context.Context, work Task, opts ...SubmitOption) (uuid.UUID, error)
}

// SummaryRequestPayload is the payload carried on document summary task
// request events. The emitting service pre-assigns the task id so it can
// report it to the caller before the task exists.
type SummaryRequestPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// TaskRequestEventHandler turns task request events into scheduler
// submissions. It decouples the services that want background work from the
// scheduler that runs it.
type TaskRequestEventHandler struct {
	summaryFactory SummaryTaskFactory
	scheduler      Submitter
	logger         *slog.Logger
}

// NewTaskRequestEventHandler creates a handler that builds summary tasks via
// the factory and submits them to the scheduler.
func NewTaskRequestEventHandler(
	summaryFactory SummaryTaskFactory,
	scheduler Submitter,
	logger *slog.Logger,
) *TaskRequestEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskRequestEventHandler{
		summaryFactory: summaryFactory,
		scheduler:      scheduler,
		logger:         logger.With("component", "task_request_event_handler"),
	}
}

// HandleEvent processes a task request event by creating and submitting the
// matching task. Events of types this handler does not know are ignored so
// additional handlers can coexist on the same emitter.
func (h *TaskRequestEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != TaskTypeDocumentSummary {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload SummaryRequestPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.DocumentID == uuid.Nil {
		h.logger.Error("event payload missing document ID", "event_id", event.ID)
		return fmt.Errorf("event %s: %w", event.ID, ErrEmptyDocumentID)
	}

	work, err := h.summaryFactory.CreateTask(payload.DocumentID)
	if err != nil {
		h.logger.Error("failed to create summary task",
			"error", err,
			"document_id", payload.DocumentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create summary task: %w", err)
	}

	opts := []SubmitOption{
		WithPriority(PriorityMedium),
		WithTaskType(TaskTypeDocumentSummary),
		WithMetadata(map[string]string{"document_id": payload.DocumentID.String()}),
	}
	// Honor the service's pre-assigned id so API responses and the running
	// task agree on it.
	if payload.TaskID != uuid.Nil {
		opts = append(opts, WithTaskID(payload.TaskID))
	}

	taskID, err := h.scheduler.Submit(ctx, work, opts...)
	if err != nil {
		h.logger.Error("failed to submit summary task",
			"error", err,
			"document_id", payload.DocumentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit summary task: %w", err)
	}

	h.logger.Info("summary task submitted",
		"task_id", taskID,
		"document_id", payload.DocumentID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskRequestEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskRequestEventHandler)(nil)
