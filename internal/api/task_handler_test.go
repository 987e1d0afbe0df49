package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/service"
	"github.com/phrazzld/tome-api/internal/task"
)

// MockTaskService implements TaskService with function fields.
type MockTaskService struct {
	GetStatusFn     func(id uuid.UUID) *task.TaskRecord
	CancelFn        func(id uuid.UUID) bool
	WaitForFn       func(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error)
	GetStatisticsFn func() task.Statistics
}

func (m *MockTaskService) GetStatus(id uuid.UUID) *task.TaskRecord {
	if m.GetStatusFn != nil {
		return m.GetStatusFn(id)
	}
	return nil
}

func (m *MockTaskService) Cancel(id uuid.UUID) bool {
	if m.CancelFn != nil {
		return m.CancelFn(id)
	}
	return false
}

func (m *MockTaskService) WaitFor(
	ctx context.Context,
	id uuid.UUID,
	timeout time.Duration,
) (*task.TaskRecord, error) {
	if m.WaitForFn != nil {
		return m.WaitForFn(ctx, id, timeout)
	}
	return nil, task.ErrUnknownTask
}

func (m *MockTaskService) GetStatistics() task.Statistics {
	if m.GetStatisticsFn != nil {
		return m.GetStatisticsFn()
	}
	return task.Statistics{}
}

func pendingRecord(id uuid.UUID) *task.TaskRecord {
	return &task.TaskRecord{
		ID:          id,
		TaskType:    "document_summary",
		Priority:    task.PriorityMedium,
		Status:      task.StatusPending,
		SubmittedAt: time.Now().UTC(),
		MaxRetries:  2,
		Metadata:    map[string]string{"document_id": uuid.New().String()},
	}
}

func newTaskTestCache(t *testing.T) *cache.ResultCache {
	t.Helper()
	srv := miniredis.RunT(t)
	return cache.NewResultCache(srv.Addr(), slog.Default())
}

func TestTaskHandler_GetTask(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns a live record", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		record := pendingRecord(taskID)
		scheduler := &MockTaskService{
			GetStatusFn: func(id uuid.UUID) *task.TaskRecord {
				assert.Equal(t, taskID, id)
				return record
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String(), nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.GetTask(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, taskID, resp.ID)
		assert.Equal(t, "document_summary", resp.TaskType)
		assert.Equal(t, "medium", resp.Priority)
		assert.Equal(t, string(task.StatusPending), resp.Status)
	})

	t.Run("falls back to the result cache for swept tasks", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		resultCache := newTaskTestCache(t)
		require.NoError(t, resultCache.SetResult(context.Background(), taskID.String(),
			map[string]string{"summary": "done"}, time.Minute))

		scheduler := &MockTaskService{} // registry no longer knows the id
		handler := NewTaskHandler(scheduler, resultCache, nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String(), nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.GetTask(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp CachedResultResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, taskID, resp.ID)
		assert.Equal(t, string(task.StatusCompleted), resp.Status)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(resp.Result, &payload))
		assert.Equal(t, "done", payload["summary"])
	})

	t.Run("returns 404 when neither registry nor cache knows the id", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&MockTaskService{}, newTaskTestCache(t), nil, slog.Default())

		taskID := uuid.New()
		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String(), nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.GetTask(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&MockTaskService{}, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/nope", nil, userID,
			map[string]string{"id": "nope"})
		recorder := httptest.NewRecorder()

		handler.GetTask(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestTaskHandler_CancelTask(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("accepts a cancellable task", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		record := pendingRecord(taskID)
		record.CancelRequested = true

		scheduler := &MockTaskService{
			CancelFn: func(id uuid.UUID) bool { return true },
			GetStatusFn: func(id uuid.UUID) *task.TaskRecord {
				return record
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("POST", "/api/tasks/"+taskID.String()+"/cancel", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.CancelTask(recorder, req)

		require.Equal(t, http.StatusAccepted, recorder.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.True(t, resp.CancelRequested)
	})

	t.Run("returns 404 for an unknown id", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&MockTaskService{}, newTaskTestCache(t), nil, slog.Default())

		taskID := uuid.New()
		req := newAuthenticatedRequest("POST", "/api/tasks/"+taskID.String()+"/cancel", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.CancelTask(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("returns 409 for a terminal task", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		record := pendingRecord(taskID)
		record.Status = task.StatusCompleted

		scheduler := &MockTaskService{
			CancelFn: func(id uuid.UUID) bool { return false },
			GetStatusFn: func(id uuid.UUID) *task.TaskRecord {
				return record
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("POST", "/api/tasks/"+taskID.String()+"/cancel", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.CancelTask(recorder, req)

		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestTaskHandler_WaitTask(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns the terminal record", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		record := pendingRecord(taskID)
		record.Status = task.StatusCompleted

		scheduler := &MockTaskService{
			WaitForFn: func(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error) {
				assert.Equal(t, defaultWaitTimeout, timeout)
				return record, nil
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String()+"/wait", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.WaitTask(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp TaskResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, string(task.StatusCompleted), resp.Status)
	})

	t.Run("honors and caps the timeout parameter", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		scheduler := &MockTaskService{
			WaitForFn: func(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error) {
				assert.Equal(t, maxWaitTimeout, timeout)
				record := pendingRecord(taskID)
				record.Status = task.StatusCompleted
				return record, nil
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String()+"/wait?timeout=9999", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.WaitTask(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("maps a wait timeout to 408", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		scheduler := &MockTaskService{
			WaitForFn: func(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error) {
				return nil, task.ErrWaitTimeout
			},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String()+"/wait", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.WaitTask(recorder, req)

		assert.Equal(t, http.StatusRequestTimeout, recorder.Code)
	})

	t.Run("rejects an invalid timeout parameter", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		handler := NewTaskHandler(&MockTaskService{}, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/"+taskID.String()+"/wait?timeout=-5", nil, userID,
			map[string]string{"id": taskID.String()})
		recorder := httptest.NewRecorder()

		handler.WaitTask(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestTaskHandler_GetStats(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns scheduler and delete counters", func(t *testing.T) {
		t.Parallel()

		scheduler := &MockTaskService{
			GetStatisticsFn: func() task.Statistics {
				return task.Statistics{Submitted: 12, Completed: 9, Failed: 1, Running: 2}
			},
		}
		deleteService := &MockDeleteService{
			StatsValue: service.DeleteStats{Operations: 4, DocumentsDeleted: 17},
		}
		handler := NewTaskHandler(scheduler, newTaskTestCache(t), deleteService, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/stats", nil, userID, nil)
		recorder := httptest.NewRecorder()

		handler.GetStats(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp struct {
			Scheduler task.Statistics     `json:"scheduler"`
			Deletes   service.DeleteStats `json:"deletes"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, uint64(12), resp.Scheduler.Submitted)
		assert.Equal(t, uint64(17), resp.Deletes.DocumentsDeleted)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&MockTaskService{}, newTaskTestCache(t), nil, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/tasks/stats", nil, uuid.Nil, nil)
		recorder := httptest.NewRecorder()

		handler.GetStats(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
