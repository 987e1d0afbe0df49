package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/platform/logger"
	"github.com/phrazzld/tome-api/internal/store"
)

// PostgresDocumentStore implements the store.DocumentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDocumentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDocumentStore creates a new PostgreSQL implementation of the DocumentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresDocumentStore(db store.DBTX, logger *slog.Logger) *PostgresDocumentStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDocumentStore{
		db:     db,
		logger: logger.With(slog.String("component", "document_store")),
	}
}

// Ensure PostgresDocumentStore implements store.DocumentStore interface
var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// Create implements store.DocumentStore.Create
// It saves a new document to the database, handling domain validation.
// Returns validation errors from the domain Document if data is invalid.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate document data
	if err := doc.Validate(); err != nil {
		log.Warn("document validation failed during create",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return err
	}

	query := `
		INSERT INTO documents (id, user_id, title, content, summary, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.Title,
		doc.Content,
		doc.Summary,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		// Check for foreign key violation
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during document creation",
				slog.String("error", err.Error()),
				slog.String("document_id", doc.ID.String()),
				slog.String("user_id", doc.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, doc.UserID)
		}

		// Log the error
		log.Error("failed to create document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()),
			slog.String("user_id", doc.UserID.String()))

		// Return the original error
		return err
	}

	log.Info("document created successfully",
		slog.String("document_id", doc.ID.String()),
		slog.String("user_id", doc.UserID.String()),
		slog.String("status", string(doc.Status)))
	return nil
}

// GetByID implements store.DocumentStore.GetByID
// It retrieves a document by its unique ID.
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *PostgresDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving document by ID", slog.String("document_id", id.String()))

	query := `
		SELECT id, user_id, title, content, summary, status, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Content,
		&doc.Summary,
		&status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("document not found", slog.String("document_id", id.String()))
			return nil, store.ErrDocumentNotFound
		}
		log.Error("failed to get document by ID",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)

	log.Debug("document retrieved successfully",
		slog.String("document_id", id.String()),
		slog.String("status", string(doc.Status)))
	return &doc, nil
}

// FindByUserID implements store.DocumentStore.FindByUserID
// It retrieves all documents owned by the given user, newest first.
// Returns an empty slice if no documents match the criteria.
func (s *PostgresDocumentStore) FindByUserID(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Document, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate limit and offset
	if limit <= 0 {
		limit = 10 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	log.Debug("finding documents by user ID",
		slog.String("user_id", userID.String()),
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	query := `
		SELECT id, user_id, title, content, summary, status, created_at, updated_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query documents by user ID",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		err := rows.Close()
		if err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var statusStr string

		err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.Title,
			&doc.Content,
			&doc.Summary,
			&statusStr,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan document row",
				slog.String("error", err.Error()))
			return nil, err
		}

		doc.Status = domain.DocumentStatus(statusStr)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no documents found
	if docs == nil {
		docs = []*domain.Document{}
	}

	log.Debug("found documents by user ID",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(docs)))
	return docs, nil
}

// Update implements store.DocumentStore.Update
// It saves changes to an existing document.
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *PostgresDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate document data
	if err := doc.Validate(); err != nil {
		log.Warn("document validation failed during update",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return err
	}

	doc.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE documents
		SET title = $1, content = $2, summary = $3, status = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		doc.Title,
		doc.Content,
		doc.Summary,
		doc.Status,
		doc.UpdatedAt,
		doc.ID,
	)

	if err != nil {
		log.Error("failed to update document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()),
			slog.String("status", string(doc.Status)))
		return err
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return err
	}

	// If no rows were affected, the document didn't exist
	if rowsAffected == 0 {
		log.Debug("document not found for update",
			slog.String("document_id", doc.ID.String()))
		return store.ErrDocumentNotFound
	}

	log.Info("document updated successfully",
		slog.String("document_id", doc.ID.String()),
		slog.String("status", string(doc.Status)))
	return nil
}

// UpdateStatus implements store.DocumentStore.UpdateStatus
// It updates the status of an existing document.
// Returns store.ErrDocumentNotFound if the document does not exist.
// Returns domain.ErrInvalidDocumentStatus if the status is invalid.
func (s *PostgresDocumentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("updating document status",
		slog.String("document_id", id.String()),
		slog.String("status", string(status)))

	if !status.IsValid() {
		log.Warn("invalid status for document status update",
			slog.String("document_id", id.String()),
			slog.String("status", string(status)))
		return domain.ErrInvalidDocumentStatus
	}

	updatedAt := time.Now().UTC()

	query := `
		UPDATE documents
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		status,
		updatedAt,
		id,
	)

	if err != nil {
		log.Error("failed to update document status",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()),
			slog.String("status", string(status)))
		return err
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return err
	}

	// If no rows were affected, the document didn't exist
	if rowsAffected == 0 {
		log.Debug("document not found for status update",
			slog.String("document_id", id.String()))
		return store.ErrDocumentNotFound
	}

	log.Info("document status updated successfully",
		slog.String("document_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// Delete implements store.DocumentStore.Delete
// It removes a document from the database.
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *PostgresDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM documents WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete document",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return err
	}

	// Check if a row was actually deleted
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return err
	}

	// If no rows were affected, the document didn't exist
	if rowsAffected == 0 {
		log.Debug("document not found for delete",
			slog.String("document_id", id.String()))
		return store.ErrDocumentNotFound
	}

	log.Info("document deleted successfully",
		slog.String("document_id", id.String()))
	return nil
}

// WithTx implements store.DocumentStore.WithTx
// It returns a copy of the store bound to the given transaction.
func (s *PostgresDocumentStore) WithTx(tx *sql.Tx) store.DocumentStore {
	return &PostgresDocumentStore{
		db:     tx,
		logger: s.logger,
	}
}
