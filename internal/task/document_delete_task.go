package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Errors returned by the delete task constructors.
var (
	ErrNilRemover = errors.New("document remover cannot be nil")
	ErrEmptyBatch = errors.New("batch must contain at least one document ID")
)

// DocumentRemover performs the actual removal of one document. The delete
// service provides an implementation that deletes the row and evicts any
// cached summary in one call.
type DocumentRemover interface {
	Remove(ctx context.Context, documentID uuid.UUID) error
}

// DeleteResult is the value a completed delete task stores on its record.
type DeleteResult struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// DocumentDeleteTask removes a single document. The delete service submits
// these at high priority so targeted deletes jump ahead of batch work.
type DocumentDeleteTask struct {
	documentID uuid.UUID
	remover    DocumentRemover
	logger     *slog.Logger
}

// NewDocumentDeleteTask creates a delete task for one document.
func NewDocumentDeleteTask(documentID uuid.UUID, remover DocumentRemover, logger *slog.Logger) (*DocumentDeleteTask, error) {
	if remover == nil {
		return nil, ErrNilRemover
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if documentID == uuid.Nil {
		return nil, ErrEmptyDocumentID
	}

	return &DocumentDeleteTask{
		documentID: documentID,
		remover:    remover,
		logger:     logger.With("task_type", TaskTypeDocumentDelete, "document_id", documentID),
	}, nil
}

// Execute removes the document.
func (t *DocumentDeleteTask) Execute(ctx context.Context) (any, error) {
	t.logger.Info("starting document delete task")

	if err := t.remover.Remove(ctx, t.documentID); err != nil {
		t.logger.Error("failed to delete document", "error", err)
		return nil, fmt.Errorf("failed to delete document %s: %w", t.documentID, err)
	}

	t.logger.Info("document delete task completed")
	return DeleteResult{DocumentID: t.documentID}, nil
}

// BatchDeleteResult is the value a completed batch delete task stores on its
// record: which documents were removed and which failed, with one message
// per failure.
type BatchDeleteResult struct {
	Deleted       []uuid.UUID `json:"deleted"`
	Failed        []uuid.UUID `json:"failed,omitempty"`
	ErrorMessages []string    `json:"error_messages,omitempty"`
}

// DocumentBatchDeleteTask removes a chunk of documents. Failures are
// per-document: one bad id does not abort the rest of the chunk, and the
// task itself only errors when every removal failed, so the retry budget is
// spent on systemic faults rather than partial outcomes.
type DocumentBatchDeleteTask struct {
	documentIDs []uuid.UUID
	remover     DocumentRemover
	logger      *slog.Logger
}

// NewDocumentBatchDeleteTask creates a delete task covering the given
// documents.
func NewDocumentBatchDeleteTask(documentIDs []uuid.UUID, remover DocumentRemover, logger *slog.Logger) (*DocumentBatchDeleteTask, error) {
	if remover == nil {
		return nil, ErrNilRemover
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if len(documentIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	ids := make([]uuid.UUID, len(documentIDs))
	copy(ids, documentIDs)

	return &DocumentBatchDeleteTask{
		documentIDs: ids,
		remover:     remover,
		logger:      logger.With("task_type", TaskTypeDocumentBatchDelete, "batch_size", len(ids)),
	}, nil
}

// Execute removes each document in the chunk, collecting per-document
// outcomes. It stops early only when the execution context is done.
func (t *DocumentBatchDeleteTask) Execute(ctx context.Context) (any, error) {
	t.logger.Info("starting batch delete task")

	result := BatchDeleteResult{}
	for _, id := range t.documentIDs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch delete interrupted after %d of %d documents: %w",
				len(result.Deleted)+len(result.Failed), len(t.documentIDs), err)
		}

		if err := t.remover.Remove(ctx, id); err != nil {
			t.logger.Warn("failed to delete document in batch", "document_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	if len(result.Deleted) == 0 {
		t.logger.Error("batch delete failed for every document", "failed", len(result.Failed))
		return result, fmt.Errorf("all %d deletions in batch failed: %s",
			len(result.Failed), result.ErrorMessages[0])
	}

	t.logger.Info("batch delete task completed",
		"deleted", len(result.Deleted),
		"failed", len(result.Failed))
	return result, nil
}
