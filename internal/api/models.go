package api

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	// Field renamed from Token for clarity but JSON field name kept for backward compatibility
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	// AccessToken is the new JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the new JWT token used to obtain future access tokens
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// UpdateUserRequest defines the payload for the account update endpoint.
// Both fields are optional, but at least one must be present.
type UpdateUserRequest struct {
	Email    string `json:"email,omitempty"    validate:"omitempty,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=12,max=72"`
}

// UserResponse defines the representation of the authenticated user's
// profile. The password hash never leaves the service layer.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// CreateDocumentRequest defines the payload for the document upload endpoint.
type CreateDocumentRequest struct {
	Title   string `json:"title"   validate:"required,max=500"`
	Content string `json:"content" validate:"required"`
}

// DocumentResponse defines the representation of a document in API
// responses. Content is omitted from list responses.
type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// CreateDocumentResponse is the 202 response for the document upload
// endpoint: the stored document and the task generating its summary.
type CreateDocumentResponse struct {
	Document DocumentResponse `json:"document"`
	TaskID   uuid.UUID        `json:"task_id"`
}

// DocumentListResponse wraps a page of the user's documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// BatchDeleteRequest defines the payload for the batch delete endpoint.
type BatchDeleteRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids" validate:"required,min=1,max=1000"`
}

// DeleteAcceptedResponse is the 202 response for delete endpoints: the audit
// operation id and the scheduler task ids carrying the work.
type DeleteAcceptedResponse struct {
	OperationID uuid.UUID   `json:"operation_id"`
	TaskIDs     []uuid.UUID `json:"task_ids,omitempty"`
}

// TaskResponse defines the representation of a scheduled task in API
// responses.
type TaskResponse struct {
	ID              uuid.UUID         `json:"id"`
	TaskType        string            `json:"task_type,omitempty"`
	Priority        string            `json:"priority"`
	Status          string            `json:"status"`
	SubmittedAt     string            `json:"submitted_at"`
	StartedAt       string            `json:"started_at,omitempty"`
	CompletedAt     string            `json:"completed_at,omitempty"`
	RetryCount      int               `json:"retry_count"`
	MaxRetries      int               `json:"max_retries"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Result          any               `json:"result,omitempty"`
	Error           string            `json:"error,omitempty"`
	CancelRequested bool              `json:"cancel_requested,omitempty"`
}

// CachedResultResponse is returned for task ids whose record has been swept
// but whose result is still in the result cache.
type CachedResultResponse struct {
	ID     uuid.UUID       `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}
