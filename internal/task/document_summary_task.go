package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/generation"
)

// Common errors returned by task constructors.
var (
	ErrNilDocumentService = errors.New("document service cannot be nil")
	ErrNilGenerator       = errors.New("generator cannot be nil")
	ErrNilLogger          = errors.New("logger cannot be nil")
	ErrEmptyDocumentID    = errors.New("document ID cannot be empty")
)

// DocumentService defines the document operations the summary task needs.
// This narrow seam keeps the task package independent of the service layer.
type DocumentService interface {
	// GetDocument retrieves a document by its ID regardless of owner.
	GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)

	// UpdateDocumentStatus moves a document through its lifecycle.
	UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error

	// SaveSummary persists the generated summary on the document.
	SaveSummary(ctx context.Context, documentID uuid.UUID, summary string) error
}

// SummaryResult is the value a completed summary task stores on its task
// record and in the result cache.
type SummaryResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Summary    string    `json:"summary"`
}

// DocumentSummaryTask generates and persists a summary for one document:
// mark summarizing, call the generator, save the summary, mark ready. On a
// generation or save failure the document is marked failed and the error is
// returned so the scheduler's retry policy applies.
type DocumentSummaryTask struct {
	documentID  uuid.UUID
	docService  DocumentService
	generator   generation.SummaryGenerator
	resultCache *cache.ResultCache
	logger      *slog.Logger
}

// NewDocumentSummaryTask creates a summary task for the given document.
// resultCache may be nil; caching is then skipped.
func NewDocumentSummaryTask(
	documentID uuid.UUID,
	docService DocumentService,
	generator generation.SummaryGenerator,
	resultCache *cache.ResultCache,
	logger *slog.Logger,
) (*DocumentSummaryTask, error) {
	if docService == nil {
		return nil, ErrNilDocumentService
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if documentID == uuid.Nil {
		return nil, ErrEmptyDocumentID
	}

	return &DocumentSummaryTask{
		documentID:  documentID,
		docService:  docService,
		generator:   generator,
		resultCache: resultCache,
		logger:      logger.With("task_type", TaskTypeDocumentSummary, "document_id", documentID),
	}, nil
}

// Execute runs the summary pipeline for the document. The returned value is
// a SummaryResult; the scheduler stores it on the task record.
func (t *DocumentSummaryTask) Execute(ctx context.Context) (any, error) {
	t.logger.Info("starting document summary task")

	doc, err := t.docService.GetDocument(ctx, t.documentID)
	if err != nil {
		t.logger.Error("failed to retrieve document", "error", err)
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	if err := t.docService.UpdateDocumentStatus(ctx, t.documentID, domain.DocumentStatusSummarizing); err != nil {
		t.logger.Error("failed to mark document summarizing", "error", err)
		return nil, fmt.Errorf("failed to mark document summarizing: %w", err)
	}

	summary, err := t.generator.GenerateSummary(ctx, doc)
	if err != nil {
		// Best effort: the scheduler may retry, and a retry re-enters the
		// failed -> summarizing transition.
		if statusErr := t.docService.UpdateDocumentStatus(ctx, t.documentID, domain.DocumentStatusFailed); statusErr != nil {
			t.logger.Error("failed to mark document failed after generation error", "error", statusErr)
		}
		t.logger.Error("summary generation failed", "error", err)
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	if err := t.docService.SaveSummary(ctx, t.documentID, summary); err != nil {
		if statusErr := t.docService.UpdateDocumentStatus(ctx, t.documentID, domain.DocumentStatusFailed); statusErr != nil {
			t.logger.Error("failed to mark document failed after save error", "error", statusErr)
		}
		t.logger.Error("failed to save summary", "error", err)
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	if err := t.docService.UpdateDocumentStatus(ctx, t.documentID, domain.DocumentStatusReady); err != nil {
		// The summary is persisted; log and report the status failure.
		t.logger.Error("failed to mark document ready", "error", err)
		return nil, fmt.Errorf("failed to mark document ready: %w", err)
	}

	result := SummaryResult{DocumentID: t.documentID, Summary: summary}

	// The cache write is advisory; a miss just means readers go to the
	// database. The document link lets a later delete evict the entry.
	if taskID, ok := TaskIDFromContext(ctx); ok {
		if err := t.resultCache.SetResult(ctx, taskID.String(), result, 0); err != nil {
			t.logger.Warn("failed to cache summary result", "error", err)
		} else if err := t.resultCache.LinkDocument(ctx, t.documentID.String(), taskID.String(), 0); err != nil {
			t.logger.Warn("failed to link cached summary to document", "error", err)
		}
	}

	t.logger.Info("document summary task completed", "summary_length", len(summary))
	return result, nil
}
