package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/domain"
)

// OperationStore defines the interface for bulk-operation audit records.
// Version: 1.0
type OperationStore interface {
	// Create saves a new operation record to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, op *domain.Operation) error

	// GetByID retrieves an operation record by its unique ID.
	// Returns ErrOperationNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error)

	// Update saves changes to an existing operation record, typically its
	// concluded counts and status.
	// Returns ErrOperationNotFound if the record does not exist.
	Update(ctx context.Context, op *domain.Operation) error

	// DeleteOlderThan removes operation records created before the cutoff
	// and returns how many rows were removed. Used by scheduled
	// maintenance to bound audit growth.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new OperationStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) OperationStore
}
