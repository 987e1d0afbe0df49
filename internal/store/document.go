package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
)

// DocumentStore defines the interface for document data persistence.
// Version: 1.0
type DocumentStore interface {
	// Create saves a new document to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Document if data is invalid.
	Create(ctx context.Context, doc *domain.Document) error

	// GetByID retrieves a document by its unique ID.
	// Returns ErrDocumentNotFound if the document does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// FindByUserID retrieves documents owned by the given user, newest
	// first. Returns an empty slice if no documents match. Can limit the
	// number of results and paginate through offset.
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Document, error)

	// Update saves changes to an existing document, including its summary.
	// Returns ErrDocumentNotFound if the document does not exist.
	// Returns validation errors if the document data is invalid.
	Update(ctx context.Context, doc *domain.Document) error

	// UpdateStatus updates the status of an existing document.
	// Returns ErrDocumentNotFound if the document does not exist.
	// Returns validation errors if the status is invalid.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error

	// Delete removes a document from the store by its ID.
	// Returns ErrDocumentNotFound if the document does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new DocumentStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) DocumentStore
}
