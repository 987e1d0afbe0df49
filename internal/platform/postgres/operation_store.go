package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/platform/logger"
	"github.com/phrazzld/tome-api/internal/store"
)

// PostgresOperationStore implements the store.OperationStore interface
// using a PostgreSQL database as the storage backend. Error messages are
// stored in a JSONB column.
type PostgresOperationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOperationStore creates a new PostgreSQL implementation of the OperationStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresOperationStore(db store.DBTX, logger *slog.Logger) *PostgresOperationStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOperationStore{
		db:     db,
		logger: logger.With(slog.String("component", "operation_store")),
	}
}

// Ensure PostgresOperationStore implements store.OperationStore interface
var _ store.OperationStore = (*PostgresOperationStore)(nil)

// marshalErrorMessages encodes the error message list for the JSONB column.
// A nil slice is stored as an empty JSON array.
func marshalErrorMessages(messages []string) ([]byte, error) {
	if messages == nil {
		messages = []string{}
	}
	return json.Marshal(messages)
}

// Create implements store.OperationStore.Create
// It saves a new operation record to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresOperationStore) Create(ctx context.Context, op *domain.Operation) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate operation data
	if err := op.Validate(); err != nil {
		log.Warn("operation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()))
		return err
	}

	messages, err := marshalErrorMessages(op.ErrorMessages)
	if err != nil {
		log.Error("failed to encode error messages",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()))
		return err
	}

	query := `
		INSERT INTO operations (id, user_id, task_id, kind, status, requested_count,
			deleted_count, failed_count, error_messages, execution_ms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		op.ID,
		op.UserID,
		op.TaskID,
		op.Kind,
		op.Status,
		op.RequestedCount,
		op.DeletedCount,
		op.FailedCount,
		messages,
		op.ExecutionMs,
		op.CreatedAt,
		op.UpdatedAt,
	)

	if err != nil {
		// Check for foreign key violation
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during operation creation",
				slog.String("error", err.Error()),
				slog.String("operation_id", op.ID.String()),
				slog.String("user_id", op.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, op.UserID)
		}

		// Log the error
		log.Error("failed to create operation",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()),
			slog.String("user_id", op.UserID.String()))

		// Return the original error
		return err
	}

	log.Info("operation created successfully",
		slog.String("operation_id", op.ID.String()),
		slog.String("user_id", op.UserID.String()),
		slog.String("kind", string(op.Kind)))
	return nil
}

// GetByID implements store.OperationStore.GetByID
// It retrieves an operation record by its unique ID.
// Returns store.ErrOperationNotFound if the record does not exist.
func (s *PostgresOperationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving operation by ID", slog.String("operation_id", id.String()))

	query := `
		SELECT id, user_id, task_id, kind, status, requested_count,
			deleted_count, failed_count, error_messages, execution_ms, created_at, updated_at
		FROM operations
		WHERE id = $1
	`

	var op domain.Operation
	var kind, status string
	var messages []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&op.ID,
		&op.UserID,
		&op.TaskID,
		&kind,
		&status,
		&op.RequestedCount,
		&op.DeletedCount,
		&op.FailedCount,
		&messages,
		&op.ExecutionMs,
		&op.CreatedAt,
		&op.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("operation not found", slog.String("operation_id", id.String()))
			return nil, store.ErrOperationNotFound
		}
		log.Error("failed to get operation by ID",
			slog.String("error", err.Error()),
			slog.String("operation_id", id.String()))
		return nil, err
	}

	op.Kind = domain.OperationKind(kind)
	op.Status = domain.OperationStatus(status)

	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &op.ErrorMessages); err != nil {
			log.Error("failed to decode error messages",
				slog.String("error", err.Error()),
				slog.String("operation_id", id.String()))
			return nil, err
		}
	}

	log.Debug("operation retrieved successfully",
		slog.String("operation_id", id.String()),
		slog.String("status", string(op.Status)))
	return &op, nil
}

// Update implements store.OperationStore.Update
// It saves changes to an existing operation record.
// Returns store.ErrOperationNotFound if the record does not exist.
func (s *PostgresOperationStore) Update(ctx context.Context, op *domain.Operation) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate operation data
	if err := op.Validate(); err != nil {
		log.Warn("operation validation failed during update",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()))
		return err
	}

	messages, err := marshalErrorMessages(op.ErrorMessages)
	if err != nil {
		log.Error("failed to encode error messages",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()))
		return err
	}

	op.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE operations
		SET status = $1, deleted_count = $2, failed_count = $3,
			error_messages = $4, execution_ms = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		op.Status,
		op.DeletedCount,
		op.FailedCount,
		messages,
		op.ExecutionMs,
		op.UpdatedAt,
		op.ID,
	)

	if err != nil {
		log.Error("failed to update operation",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()),
			slog.String("status", string(op.Status)))
		return err
	}

	// Check if a row was actually updated
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("operation_id", op.ID.String()))
		return err
	}

	// If no rows were affected, the operation didn't exist
	if rowsAffected == 0 {
		log.Debug("operation not found for update",
			slog.String("operation_id", op.ID.String()))
		return store.ErrOperationNotFound
	}

	log.Info("operation updated successfully",
		slog.String("operation_id", op.ID.String()),
		slog.String("status", string(op.Status)))
	return nil
}

// DeleteOlderThan implements store.OperationStore.DeleteOlderThan
// It removes operation records created before the cutoff and returns the
// number of rows removed.
func (s *PostgresOperationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM operations WHERE created_at < $1`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		log.Error("failed to delete old operations",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff))
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff))
		return 0, err
	}

	if rowsAffected > 0 {
		log.Info("pruned old operation records",
			slog.Int64("count", rowsAffected),
			slog.Time("cutoff", cutoff))
	}
	return rowsAffected, nil
}

// WithTx implements store.OperationStore.WithTx
// It returns a copy of the store bound to the given transaction.
func (s *PostgresOperationStore) WithTx(tx *sql.Tx) store.OperationStore {
	return &PostgresOperationStore{
		db:     tx,
		logger: s.logger,
	}
}
