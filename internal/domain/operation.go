package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OperationKind distinguishes audit records for single-entity deletes from
// batch deletes.
type OperationKind string

// Possible operation kinds
const (
	OperationKindEntityDelete OperationKind = "entity_delete"
	OperationKindBatchDelete  OperationKind = "batch_delete"
)

// OperationStatus represents the recorded state of a bulk operation
type OperationStatus string

// Possible operation status values
const (
	OperationStatusPending             OperationStatus = "pending"
	OperationStatusRunning             OperationStatus = "running"
	OperationStatusCompleted           OperationStatus = "completed"
	OperationStatusCompletedWithErrors OperationStatus = "completed_with_errors"
	OperationStatusFailed              OperationStatus = "failed"
	OperationStatusCancelled           OperationStatus = "cancelled"
)

// Operation-specific validation errors
var (
	ErrEmptyOperationID       = errors.New("operation ID cannot be empty")
	ErrEmptyOperationUserID   = errors.New("operation user ID cannot be empty")
	ErrInvalidOperationKind   = errors.New("invalid operation kind")
	ErrInvalidOperationStatus = errors.New("invalid operation status")
	ErrNegativeOperationCount = errors.New("operation counts cannot be negative")
)

// Operation is the audit record of a delete operation: which task carried
// it, how many documents it covered, and how it ended. Task execution state
// itself is in-memory only; these rows are the durable trail.
type Operation struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	TaskID         uuid.UUID       `json:"task_id"`
	Kind           OperationKind   `json:"kind"`
	Status         OperationStatus `json:"status"`
	RequestedCount int             `json:"requested_count"`
	DeletedCount   int             `json:"deleted_count"`
	FailedCount    int             `json:"failed_count"`
	ErrorMessages  []string        `json:"error_messages,omitempty"`
	ExecutionMs    int64           `json:"execution_ms"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewOperation creates a pending Operation for the given user, carrier
// task, kind, and requested document count.
// Returns an error if validation fails.
func NewOperation(userID, taskID uuid.UUID, kind OperationKind, requested int) (*Operation, error) {
	now := time.Now().UTC()
	op := &Operation{
		ID:             uuid.New(),
		UserID:         userID,
		TaskID:         taskID,
		Kind:           kind,
		Status:         OperationStatusPending,
		RequestedCount: requested,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := op.Validate(); err != nil {
		return nil, err
	}

	return op, nil
}

// Validate checks if the Operation has valid data.
// Returns an error if any field fails validation.
func (o *Operation) Validate() error {
	if o.ID == uuid.Nil {
		return ErrEmptyOperationID
	}

	if o.UserID == uuid.Nil {
		return ErrEmptyOperationUserID
	}

	if !o.Kind.IsValid() {
		return ErrInvalidOperationKind
	}

	if !o.Status.IsValid() {
		return ErrInvalidOperationStatus
	}

	if o.RequestedCount < 0 || o.DeletedCount < 0 || o.FailedCount < 0 {
		return ErrNegativeOperationCount
	}

	return nil
}

// UpdateStatus updates the operation's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (o *Operation) UpdateStatus(status OperationStatus) error {
	if !status.IsValid() {
		return ErrInvalidOperationStatus
	}

	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Conclude records the outcome of the operation: how many deletes
// succeeded and failed, the per-document error messages, and how long the
// work took. The terminal status is derived from the counts.
func (o *Operation) Conclude(deleted, failed int, errMessages []string, took time.Duration) {
	o.DeletedCount = deleted
	o.FailedCount = failed
	o.ErrorMessages = errMessages
	o.ExecutionMs = took.Milliseconds()

	switch {
	case failed == 0:
		o.Status = OperationStatusCompleted
	case deleted == 0:
		o.Status = OperationStatusFailed
	default:
		o.Status = OperationStatusCompletedWithErrors
	}
	o.UpdatedAt = time.Now().UTC()
}

// IsValid reports whether k is one of the defined operation kinds.
func (k OperationKind) IsValid() bool {
	switch k {
	case OperationKindEntityDelete, OperationKindBatchDelete:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the defined operation statuses.
func (s OperationStatus) IsValid() bool {
	switch s {
	case OperationStatusPending, OperationStatusRunning, OperationStatusCompleted,
		OperationStatusCompletedWithErrors, OperationStatusFailed, OperationStatusCancelled:
		return true
	default:
		return false
	}
}
