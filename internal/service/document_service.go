package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/events"
	"github.com/phrazzld/tome-api/internal/store"
	"github.com/phrazzld/tome-api/internal/task"
)

// DocumentService provides document-related operations. The task-facing
// subset (GetDocument, UpdateDocumentStatus, SaveSummary) matches the
// task package's DocumentService seam so the same implementation serves
// both the API and the background summary task.
type DocumentService interface {
	// CreateDocumentAndEnqueueSummary saves a new document and emits a task
	// request event for its summary. It returns the document and the
	// pre-assigned summary task id so callers can poll the task API.
	CreateDocumentAndEnqueueSummary(
		ctx context.Context,
		userID uuid.UUID,
		title, content string,
	) (*domain.Document, uuid.UUID, error)

	// GetDocumentForUser retrieves a document owned by the given user.
	// Returns ErrDocumentNotFound for unknown ids and ErrNotOwned when the
	// document belongs to someone else.
	GetDocumentForUser(ctx context.Context, userID, documentID uuid.UUID) (*domain.Document, error)

	// ListDocuments retrieves the user's documents, newest first.
	ListDocuments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Document, error)

	// GetDocument retrieves a document by id regardless of owner. Intended
	// for background tasks, not request handlers.
	GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)

	// UpdateDocumentStatus moves a document through its lifecycle, guarding
	// legal transitions.
	UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error

	// SaveSummary persists a generated summary on the document.
	SaveSummary(ctx context.Context, documentID uuid.UUID, summary string) error
}

// documentServiceImpl implements the DocumentService interface
type documentServiceImpl struct {
	docStore     store.DocumentStore
	db           *sql.DB
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewDocumentService creates a new DocumentService.
// It returns an error if any of the required dependencies are nil.
func NewDocumentService(
	docStore store.DocumentStore,
	db *sql.DB,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (DocumentService, error) {
	if docStore == nil {
		return nil, NewServiceError("document", "create_service", errors.New("docStore cannot be nil"))
	}
	if db == nil {
		return nil, NewServiceError("document", "create_service", errors.New("db cannot be nil"))
	}
	if eventEmitter == nil {
		return nil, NewServiceError("document", "create_service", errors.New("eventEmitter cannot be nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &documentServiceImpl{
		docStore:     docStore,
		db:           db,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "document_service"),
	}, nil
}

// Ensure the service satisfies the task package's seam.
var _ task.DocumentService = (DocumentService)(nil)

// CreateDocumentAndEnqueueSummary creates the document in a transaction and
// emits a summary task request event. The task id is assigned here, before
// the task exists, so the API response can reference it.
func (s *documentServiceImpl) CreateDocumentAndEnqueueSummary(
	ctx context.Context,
	userID uuid.UUID,
	title, content string,
) (*domain.Document, uuid.UUID, error) {
	doc, err := domain.NewDocument(userID, title, content)
	if err != nil {
		s.logger.Warn("failed to create document object",
			"error", err,
			"user_id", userID)
		return nil, uuid.Nil, NewServiceError("document", "create", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.docStore.WithTx(tx).Create(ctx, doc)
	})
	if err != nil {
		s.logger.Error("failed to save document",
			"error", err,
			"user_id", userID,
			"document_id", doc.ID)
		return nil, uuid.Nil, NewServiceError("document", "create", err)
	}

	s.logger.Info("document created",
		"document_id", doc.ID,
		"user_id", userID)

	taskID := uuid.New()
	event, err := events.NewTaskRequestEvent(task.TaskTypeDocumentSummary, task.SummaryRequestPayload{
		DocumentID: doc.ID,
		TaskID:     taskID,
	})
	if err != nil {
		s.logger.Error("failed to create summary task event",
			"error", err,
			"document_id", doc.ID)
		return nil, uuid.Nil, NewServiceError("document", "create", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		// The document exists but no summary task was queued; surface the
		// failure so the caller can retry the upload or resubmit.
		s.logger.Error("failed to emit summary task event",
			"error", err,
			"document_id", doc.ID,
			"event_id", event.ID)
		return nil, uuid.Nil, NewServiceError("document", "create", err)
	}

	s.logger.Info("summary task requested",
		"document_id", doc.ID,
		"task_id", taskID,
		"event_id", event.ID)
	return doc, taskID, nil
}

// GetDocumentForUser retrieves a document and verifies ownership.
func (s *documentServiceImpl) GetDocumentForUser(
	ctx context.Context,
	userID, documentID uuid.UUID,
) (*domain.Document, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		s.logger.Warn("document access denied",
			"document_id", documentID,
			"owner_id", doc.UserID,
			"user_id", userID)
		return nil, ErrNotOwned
	}
	return doc, nil
}

// ListDocuments retrieves the user's documents, newest first.
func (s *documentServiceImpl) ListDocuments(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Document, error) {
	docs, err := s.docStore.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list documents",
			"error", err,
			"user_id", userID)
		return nil, NewServiceError("document", "list", err)
	}
	return docs, nil
}

// GetDocument retrieves a document by id regardless of owner.
func (s *documentServiceImpl) GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	doc, err := s.docStore.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		s.logger.Error("failed to retrieve document",
			"error", err,
			"document_id", documentID)
		return nil, NewServiceError("document", "get", err)
	}
	return doc, nil
}

// UpdateDocumentStatus updates a document's status inside a transaction so
// the read-check-write of the lifecycle guard is atomic.
func (s *documentServiceImpl) UpdateDocumentStatus(
	ctx context.Context,
	documentID uuid.UUID,
	status domain.DocumentStatus,
) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.docStore.WithTx(tx)

		doc, err := txStore.GetByID(ctx, documentID)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				return ErrDocumentNotFound
			}
			return NewServiceError("document", "update_status", err)
		}

		if err := doc.UpdateStatus(status); err != nil {
			s.logger.Warn("illegal document status transition",
				"document_id", documentID,
				"current_status", doc.Status,
				"target_status", status)
			return NewServiceError("document", "update_status",
				fmt.Errorf("cannot move document to %s: %w", status, err))
		}

		if err := txStore.Update(ctx, doc); err != nil {
			return NewServiceError("document", "update_status", err)
		}

		s.logger.Debug("document status updated",
			"document_id", documentID,
			"status", status)
		return nil
	})
}

// SaveSummary persists a generated summary on the document.
func (s *documentServiceImpl) SaveSummary(ctx context.Context, documentID uuid.UUID, summary string) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.docStore.WithTx(tx)

		doc, err := txStore.GetByID(ctx, documentID)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				return ErrDocumentNotFound
			}
			return NewServiceError("document", "save_summary", err)
		}

		doc.SetSummary(summary)
		if err := txStore.Update(ctx, doc); err != nil {
			return NewServiceError("document", "save_summary", err)
		}

		s.logger.Info("document summary saved",
			"document_id", documentID,
			"summary_length", len(summary))
		return nil
	})
}
