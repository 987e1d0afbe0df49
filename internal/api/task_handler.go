package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tome-api/internal/api/shared"
	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/platform/logger"
	"github.com/phrazzld/tome-api/internal/service"
	"github.com/phrazzld/tome-api/internal/task"
)

// Bounds for the blocking wait endpoint.
const (
	defaultWaitTimeout = 30 * time.Second
	maxWaitTimeout     = 2 * time.Minute
)

// TaskService is the slice of the scheduler the task API needs.
// Satisfied by *task.Scheduler.
type TaskService interface {
	GetStatus(id uuid.UUID) *task.TaskRecord
	Cancel(id uuid.UUID) bool
	WaitFor(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error)
	GetStatistics() task.Statistics
}

// TaskHandler exposes the scheduler's task registry over HTTP: status
// lookups, cooperative cancellation, blocking waits, and statistics.
type TaskHandler struct {
	scheduler     TaskService
	resultCache   *cache.ResultCache
	deleteService service.DeleteService
	logger        *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. resultCache may be nil; swept
// task lookups then simply miss. deleteService may be nil; the stats
// endpoint then omits delete counters.
func NewTaskHandler(
	scheduler TaskService,
	resultCache *cache.ResultCache,
	deleteService service.DeleteService,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		scheduler:     scheduler,
		resultCache:   resultCache,
		deleteService: deleteService,
		logger:        logger.With("component", "task_handler"),
	}
}

// toTaskResponse converts a task record snapshot to its API representation.
func toTaskResponse(record *task.TaskRecord) TaskResponse {
	resp := TaskResponse{
		ID:              record.ID,
		TaskType:        record.TaskType,
		Priority:        record.Priority.String(),
		Status:          string(record.Status),
		SubmittedAt:     record.SubmittedAt.Format(time.RFC3339),
		RetryCount:      record.RetryCount,
		MaxRetries:      record.MaxRetries,
		Metadata:        record.Metadata,
		Result:          record.Result,
		Error:           record.ErrorMessage,
		CancelRequested: record.CancelRequested,
	}
	if record.StartedAt != nil {
		resp.StartedAt = record.StartedAt.Format(time.RFC3339)
	}
	if record.CompletedAt != nil {
		resp.CompletedAt = record.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// GetTask handles GET /api/tasks/{id}. Records swept from the registry are
// served from the result cache when an entry is still live there.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if record := h.scheduler.GetStatus(taskID); record != nil {
		shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(record))
		return
	}

	// The registry no longer knows the id; fall back to the cached result.
	data, err := h.resultCache.GetResult(r.Context(), taskID.String())
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			HandleAPIError(w, r, task.ErrUnknownTask, "")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CachedResultResponse{
		ID:     taskID,
		Status: string(task.StatusCompleted),
		Result: data,
	})
}

// CancelTask handles POST /api/tasks/{id}/cancel. Cancellation is
// cooperative: a pending task is concluded immediately, a running one is
// signalled through its context.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if h.scheduler.Cancel(taskID) {
		log.Info("task cancellation requested", "task_id", taskID)
		record := h.scheduler.GetStatus(taskID)
		if record == nil {
			// Swept between the cancel and the read; report the request as
			// accepted anyway.
			shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]any{"id": taskID, "cancel_requested": true})
			return
		}
		shared.RespondWithJSON(w, r, http.StatusAccepted, toTaskResponse(record))
		return
	}

	// Cancel is refused for unknown ids and for tasks already terminal.
	record := h.scheduler.GetStatus(taskID)
	if record == nil {
		HandleAPIError(w, r, task.ErrUnknownTask, "")
		return
	}
	shared.RespondWithError(w, r, http.StatusConflict, "Task already finished")
}

// WaitTask handles GET /api/tasks/{id}/wait?timeout=SECONDS: it blocks until
// the task reaches a terminal status or the timeout elapses.
func (h *TaskHandler) WaitTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	timeout := defaultWaitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid timeout parameter")
			return
		}
		timeout = time.Duration(seconds) * time.Second
		if timeout > maxWaitTimeout {
			timeout = maxWaitTimeout
		}
	}

	record, err := h.scheduler.WaitFor(r.Context(), taskID, timeout)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(record))
}

// taskStatsResponse is the payload of the stats endpoint.
type taskStatsResponse struct {
	Scheduler task.Statistics      `json:"scheduler"`
	Deletes   *service.DeleteStats `json:"deletes,omitempty"`
}

// GetStats handles GET /api/tasks/stats.
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserIDFromContext(r); !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	resp := taskStatsResponse{Scheduler: h.scheduler.GetStatistics()}
	if h.deleteService != nil {
		stats := h.deleteService.Stats()
		resp.Deletes = &stats
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
