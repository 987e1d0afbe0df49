// Package service provides application-level services for managing documents,
// delete operations, and users.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// This is typically returned when a user attempts to modify a resource they don't own.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrDocumentNotFound indicates that the requested document does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrOperationNotFound indicates that the requested delete-operation record does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrEmptyBatch indicates a batch delete request that names no documents.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyBatch = errors.New("batch contains no document IDs")
)

// ServiceError wraps an unexpected failure with the service and operation
// where it occurred. Use errors.As to recover it and errors.Is to test the
// wrapped cause.
type ServiceError struct {
	// Service names the service that failed (e.g. "document", "delete").
	Service string

	// Op names the operation that failed (e.g. "create", "batch_delete").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError for the given service and operation.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Err:     err,
	}
}
