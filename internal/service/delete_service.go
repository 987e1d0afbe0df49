package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/store"
	"github.com/phrazzld/tome-api/internal/task"
)

// deleteBatchSize bounds how many documents a single batch delete task
// covers; larger requests are split into chunks of this size.
const deleteBatchSize = 10

// operationWaitBudget bounds how long the finalizer waits for a delete task
// to reach a terminal state before recording the operation as failed. It
// comfortably exceeds the worst case of a full retry budget of timed-out
// attempts.
const operationWaitBudget = time.Hour

// deleteOperationDuration observes end-to-end delete operation latency,
// labeled by operation kind.
var deleteOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tome",
	Subsystem: "delete",
	Name:      "operation_duration_seconds",
	Help:      "End-to-end duration of delete operations, from submission to recorded outcome.",
	Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
}, []string{"kind"})

// TaskScheduler is the slice of the scheduler the delete service needs.
type TaskScheduler interface {
	Submit(ctx context.Context, work task.Task, opts ...task.SubmitOption) (uuid.UUID, error)
	WaitFor(ctx context.Context, id uuid.UUID, timeout time.Duration) (*task.TaskRecord, error)
}

// DeleteReceipt is what callers get back from an accepted delete request:
// the audit record's id and the task(s) carrying the work.
type DeleteReceipt struct {
	OperationID uuid.UUID   `json:"operation_id"`
	TaskIDs     []uuid.UUID `json:"task_ids"`
}

// DeleteStats are cumulative service-level counters since process start.
type DeleteStats struct {
	Operations       uint64 `json:"operations"`
	EntityDeletes    uint64 `json:"entity_deletes"`
	BatchDeletes     uint64 `json:"batch_deletes"`
	DocumentsDeleted uint64 `json:"documents_deleted"`
	DocumentsFailed  uint64 `json:"documents_failed"`
}

// DeleteService orchestrates asynchronous document deletion: targeted
// deletes run at high priority, batch deletes at medium priority in chunks.
// Every request is recorded as a domain.Operation whose outcome is filled
// in once the carrying tasks finish.
type DeleteService interface {
	// DeleteDocument schedules deletion of one document owned by the user.
	DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) (*DeleteReceipt, error)

	// DeleteBatch schedules deletion of several documents owned by the user.
	DeleteBatch(ctx context.Context, userID uuid.UUID, documentIDs []uuid.UUID) (*DeleteReceipt, error)

	// GetOperation retrieves a delete operation's audit record.
	GetOperation(ctx context.Context, userID, operationID uuid.UUID) (*domain.Operation, error)

	// Stats returns cumulative delete counters.
	Stats() DeleteStats
}

// deleteServiceImpl implements the DeleteService interface
type deleteServiceImpl struct {
	docStore    store.DocumentStore
	opStore     store.OperationStore
	db          *sql.DB
	scheduler   TaskScheduler
	resultCache *cache.ResultCache
	logger      *slog.Logger

	mu    sync.Mutex
	stats DeleteStats

	// finalizers tracks outcome-recording goroutines so tests can wait for
	// them to settle.
	finalizers sync.WaitGroup
}

// NewDeleteService creates a new DeleteService. resultCache may be nil;
// summary eviction is then skipped. It returns an error if any of the
// required dependencies are nil.
func NewDeleteService(
	docStore store.DocumentStore,
	opStore store.OperationStore,
	db *sql.DB,
	scheduler TaskScheduler,
	resultCache *cache.ResultCache,
	logger *slog.Logger,
) (DeleteService, error) {
	if docStore == nil {
		return nil, NewServiceError("delete", "create_service", errors.New("docStore cannot be nil"))
	}
	if opStore == nil {
		return nil, NewServiceError("delete", "create_service", errors.New("opStore cannot be nil"))
	}
	if db == nil {
		return nil, NewServiceError("delete", "create_service", errors.New("db cannot be nil"))
	}
	if scheduler == nil {
		return nil, NewServiceError("delete", "create_service", errors.New("scheduler cannot be nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &deleteServiceImpl{
		docStore:    docStore,
		opStore:     opStore,
		db:          db,
		scheduler:   scheduler,
		resultCache: resultCache,
		logger:      logger.With("component", "delete_service"),
	}, nil
}

// Remove implements task.DocumentRemover: it deletes the document row in a
// transaction and evicts the document's cached summary. Delete tasks call
// it; ownership was checked at submission.
func (s *deleteServiceImpl) Remove(ctx context.Context, documentID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.docStore.WithTx(tx).Delete(ctx, documentID)
	})
	if err != nil {
		return err
	}

	// Eviction is advisory: a failure here leaves a stale entry that ages
	// out at the TTL, which is not worth failing the delete over.
	if err := s.resultCache.EvictDocument(ctx, documentID.String()); err != nil {
		s.logger.Warn("failed to evict cached summary",
			"document_id", documentID,
			"error", err)
	}
	return nil
}

var _ task.DocumentRemover = (*deleteServiceImpl)(nil)

// DeleteDocument verifies ownership, marks the document deleting, records a
// pending operation, and submits a high-priority delete task. The operation
// row is concluded asynchronously when the task finishes.
func (s *deleteServiceImpl) DeleteDocument(
	ctx context.Context,
	userID, documentID uuid.UUID,
) (*DeleteReceipt, error) {
	doc, err := s.docStore.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, NewServiceError("delete", "delete_document", err)
	}
	if doc.UserID != userID {
		return nil, ErrNotOwned
	}

	if err := s.markDeleting(ctx, documentID); err != nil {
		return nil, err
	}

	taskID := uuid.New()
	op, err := domain.NewOperation(userID, taskID, domain.OperationKindEntityDelete, 1)
	if err != nil {
		return nil, NewServiceError("delete", "delete_document", err)
	}
	if err := s.opStore.Create(ctx, op); err != nil {
		return nil, NewServiceError("delete", "delete_document", err)
	}

	work, err := task.NewDocumentDeleteTask(documentID, s, s.logger)
	if err != nil {
		return nil, NewServiceError("delete", "delete_document", err)
	}

	_, err = s.scheduler.Submit(ctx, work,
		task.WithTaskID(taskID),
		task.WithPriority(task.PriorityHigh),
		task.WithTaskType(task.TaskTypeDocumentDelete),
		task.WithMetadata(map[string]string{"operation_id": op.ID.String()}),
	)
	if err != nil {
		s.concludeRejected(ctx, op, err)
		return nil, NewServiceError("delete", "delete_document", err)
	}

	s.logger.Info("document delete scheduled",
		"document_id", documentID,
		"operation_id", op.ID,
		"task_id", taskID)

	s.finalizers.Add(1)
	go s.finalizeOperation(op, []uuid.UUID{taskID}, time.Now())

	return &DeleteReceipt{OperationID: op.ID, TaskIDs: []uuid.UUID{taskID}}, nil
}

// DeleteBatch verifies ownership of each document, marks the owned ones
// deleting, records one operation covering the whole request, and submits
// one medium-priority batch task per chunk of deleteBatchSize documents.
func (s *deleteServiceImpl) DeleteBatch(
	ctx context.Context,
	userID uuid.UUID,
	documentIDs []uuid.UUID,
) (*DeleteReceipt, error) {
	if len(documentIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	// Partition the request into deletable documents and upfront failures.
	var deletable []uuid.UUID
	var upfrontMessages []string
	for _, id := range documentIDs {
		doc, err := s.docStore.GetByID(ctx, id)
		switch {
		case errors.Is(err, store.ErrDocumentNotFound):
			upfrontMessages = append(upfrontMessages, fmt.Sprintf("%s: not found", id))
		case err != nil:
			return nil, NewServiceError("delete", "batch_delete", err)
		case doc.UserID != userID:
			upfrontMessages = append(upfrontMessages, fmt.Sprintf("%s: not owned", id))
		default:
			if err := s.markDeleting(ctx, id); err != nil {
				upfrontMessages = append(upfrontMessages, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			deletable = append(deletable, id)
		}
	}

	// Pre-assign chunk task ids so the operation row and the receipt can
	// reference them before submission.
	var chunks [][]uuid.UUID
	for start := 0; start < len(deletable); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(deletable) {
			end = len(deletable)
		}
		chunks = append(chunks, deletable[start:end])
	}
	taskIDs := make([]uuid.UUID, len(chunks))
	for i := range taskIDs {
		taskIDs[i] = uuid.New()
	}

	opTaskID := uuid.Nil
	if len(taskIDs) > 0 {
		opTaskID = taskIDs[0]
	}
	op, err := domain.NewOperation(userID, opTaskID, domain.OperationKindBatchDelete, len(documentIDs))
	if err != nil {
		return nil, NewServiceError("delete", "batch_delete", err)
	}
	if err := s.opStore.Create(ctx, op); err != nil {
		return nil, NewServiceError("delete", "batch_delete", err)
	}

	if len(chunks) == 0 {
		// Nothing deletable; the operation is already decided.
		op.Conclude(0, len(upfrontMessages), upfrontMessages, 0)
		if err := s.opStore.Update(ctx, op); err != nil {
			s.logger.Error("failed to record empty batch outcome", "error", err, "operation_id", op.ID)
		}
		s.recordOutcome(domain.OperationKindBatchDelete, 0, len(upfrontMessages))
		return &DeleteReceipt{OperationID: op.ID, TaskIDs: nil}, nil
	}

	submitted := make([]uuid.UUID, 0, len(chunks))
	for i, chunk := range chunks {
		work, err := task.NewDocumentBatchDeleteTask(chunk, s, s.logger)
		if err != nil {
			return nil, NewServiceError("delete", "batch_delete", err)
		}
		_, err = s.scheduler.Submit(ctx, work,
			task.WithTaskID(taskIDs[i]),
			task.WithPriority(task.PriorityMedium),
			task.WithTaskType(task.TaskTypeDocumentBatchDelete),
			task.WithMetadata(map[string]string{
				"operation_id": op.ID.String(),
				"chunk":        fmt.Sprintf("%d/%d", i+1, len(chunks)),
			}),
		)
		if err != nil {
			// Count every document in this and the remaining chunks as
			// failed; already-submitted chunks still run and are awaited.
			for _, rest := range chunks[i:] {
				for _, id := range rest {
					upfrontMessages = append(upfrontMessages, fmt.Sprintf("%s: %v", id, err))
				}
			}
			s.logger.Error("failed to submit batch delete chunk",
				"error", err,
				"operation_id", op.ID,
				"chunk", i+1)
			break
		}
		submitted = append(submitted, taskIDs[i])
	}

	s.logger.Info("batch delete scheduled",
		"operation_id", op.ID,
		"requested", len(documentIDs),
		"chunks", len(submitted))

	s.finalizers.Add(1)
	go s.finalizeBatch(op, submitted, upfrontMessages, time.Now())

	return &DeleteReceipt{OperationID: op.ID, TaskIDs: submitted}, nil
}

// GetOperation retrieves a delete operation's audit record, enforcing
// ownership.
func (s *deleteServiceImpl) GetOperation(
	ctx context.Context,
	userID, operationID uuid.UUID,
) (*domain.Operation, error) {
	op, err := s.opStore.GetByID(ctx, operationID)
	if err != nil {
		if errors.Is(err, store.ErrOperationNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, NewServiceError("delete", "get_operation", err)
	}
	if op.UserID != userID {
		return nil, ErrNotOwned
	}
	return op, nil
}

// Stats returns cumulative delete counters.
func (s *deleteServiceImpl) Stats() DeleteStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// markDeleting moves a document to the deleting status in a transaction.
func (s *deleteServiceImpl) markDeleting(ctx context.Context, documentID uuid.UUID) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.docStore.WithTx(tx)
		doc, err := txStore.GetByID(ctx, documentID)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				return ErrDocumentNotFound
			}
			return NewServiceError("delete", "mark_deleting", err)
		}
		if err := doc.UpdateStatus(domain.DocumentStatusDeleting); err != nil {
			return NewServiceError("delete", "mark_deleting", err)
		}
		if err := txStore.Update(ctx, doc); err != nil {
			return NewServiceError("delete", "mark_deleting", err)
		}
		return nil
	})
}

// concludeRejected records an operation whose task could not be queued.
func (s *deleteServiceImpl) concludeRejected(ctx context.Context, op *domain.Operation, cause error) {
	op.Conclude(0, op.RequestedCount, []string{fmt.Sprintf("task not queued: %v", cause)}, 0)
	if err := s.opStore.Update(ctx, op); err != nil {
		s.logger.Error("failed to record rejected operation",
			"error", err,
			"operation_id", op.ID)
	}
	s.recordOutcome(op.Kind, 0, op.RequestedCount)
}

// finalizeOperation waits for a single-document delete task and records the
// outcome on the operation row.
func (s *deleteServiceImpl) finalizeOperation(op *domain.Operation, taskIDs []uuid.UUID, started time.Time) {
	defer s.finalizers.Done()

	ctx := context.Background()
	record, err := s.scheduler.WaitFor(ctx, taskIDs[0], operationWaitBudget)

	deleted, failed := 0, 0
	var messages []string
	switch {
	case err != nil:
		failed = 1
		messages = append(messages, fmt.Sprintf("task outcome unknown: %v", err))
	case record.Status == task.StatusCompleted:
		deleted = 1
	default:
		failed = 1
		messages = append(messages, record.ErrorMessage)
	}

	op.Conclude(deleted, failed, messages, time.Since(started))
	if err := s.opStore.Update(ctx, op); err != nil {
		s.logger.Error("failed to record delete outcome",
			"error", err,
			"operation_id", op.ID)
	}
	deleteOperationDuration.WithLabelValues(string(op.Kind)).Observe(time.Since(started).Seconds())
	s.recordOutcome(op.Kind, deleted, failed)

	s.logger.Info("delete operation concluded",
		"operation_id", op.ID,
		"status", op.Status,
		"deleted", deleted,
		"failed", failed)
}

// finalizeBatch waits for every chunk task of a batch delete, aggregates
// their results with the upfront failures, and records the outcome.
func (s *deleteServiceImpl) finalizeBatch(
	op *domain.Operation,
	taskIDs []uuid.UUID,
	upfrontMessages []string,
	started time.Time,
) {
	defer s.finalizers.Done()

	ctx := context.Background()
	deleted := 0
	failed := len(upfrontMessages)
	messages := upfrontMessages

	for _, id := range taskIDs {
		record, err := s.scheduler.WaitFor(ctx, id, operationWaitBudget)
		if err != nil {
			failed++
			messages = append(messages, fmt.Sprintf("chunk %s outcome unknown: %v", id, err))
			continue
		}

		if result, ok := record.Result.(task.BatchDeleteResult); ok {
			deleted += len(result.Deleted)
			failed += len(result.Failed)
			messages = append(messages, result.ErrorMessages...)
			continue
		}

		// No usable result: the chunk was cancelled, timed out, or failed
		// outright before reporting per-document outcomes.
		failed++
		if record.ErrorMessage != "" {
			messages = append(messages, fmt.Sprintf("chunk %s: %s", id, record.ErrorMessage))
		}
	}

	op.Conclude(deleted, failed, messages, time.Since(started))
	if err := s.opStore.Update(ctx, op); err != nil {
		s.logger.Error("failed to record batch delete outcome",
			"error", err,
			"operation_id", op.ID)
	}
	deleteOperationDuration.WithLabelValues(string(op.Kind)).Observe(time.Since(started).Seconds())
	s.recordOutcome(op.Kind, deleted, failed)

	s.logger.Info("batch delete operation concluded",
		"operation_id", op.ID,
		"status", op.Status,
		"deleted", deleted,
		"failed", failed)
}

// recordOutcome bumps the service-level counters.
func (s *deleteServiceImpl) recordOutcome(kind domain.OperationKind, deleted, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Operations++
	switch kind {
	case domain.OperationKindEntityDelete:
		s.stats.EntityDeletes++
	case domain.OperationKindBatchDelete:
		s.stats.BatchDeletes++
	}
	s.stats.DocumentsDeleted += uint64(deleted)
	s.stats.DocumentsFailed += uint64(failed)
}
