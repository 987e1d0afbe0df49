package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the processing state of a document
type DocumentStatus string

// Possible document status values
const (
	// DocumentStatusUploaded marks a document stored but not yet summarized.
	DocumentStatusUploaded DocumentStatus = "uploaded"

	// DocumentStatusSummarizing marks a document whose summary task is running.
	DocumentStatusSummarizing DocumentStatus = "summarizing"

	// DocumentStatusReady marks a document with its summary persisted.
	DocumentStatusReady DocumentStatus = "ready"

	// DocumentStatusFailed marks a document whose summary generation failed.
	DocumentStatusFailed DocumentStatus = "failed"

	// DocumentStatusDeleting marks a document owned by a pending delete task.
	DocumentStatusDeleting DocumentStatus = "deleting"
)

// Document-specific validation errors
var (
	ErrEmptyDocumentID       = errors.New("document ID cannot be empty")
	ErrEmptyDocumentUserID   = errors.New("document user ID cannot be empty")
	ErrEmptyDocumentTitle    = errors.New("document title cannot be empty")
	ErrEmptyDocumentContent  = errors.New("document content cannot be empty")
	ErrInvalidDocumentStatus = errors.New("invalid document status")

	// ErrDocumentStatusTransition is returned by UpdateStatus for moves the
	// lifecycle does not allow. Use errors.Is; the returned error names the
	// offending pair.
	ErrDocumentStatusTransition = errors.New("illegal document status transition")
)

// legalTransitions enumerates the document lifecycle. A deleting document
// belongs to its delete task and cannot change state again.
var legalTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusUploaded:    {DocumentStatusSummarizing, DocumentStatusDeleting},
	DocumentStatusSummarizing: {DocumentStatusReady, DocumentStatusFailed, DocumentStatusDeleting},
	DocumentStatusReady:       {DocumentStatusDeleting},
	DocumentStatusFailed:      {DocumentStatusSummarizing, DocumentStatusDeleting},
	DocumentStatusDeleting:    {},
}

// Document represents an uploaded text document and its summarization
// state. The summary is filled in asynchronously by a background task.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Summary   string         `json:"summary,omitempty"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewDocument creates a new Document with the given user ID, title, and
// content. It generates a new UUID for the document ID, sets the status to
// uploaded, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewDocument(userID uuid.UUID, title, content string) (*Document, error) {
	now := time.Now().UTC()
	doc := &Document{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		Status:    DocumentStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
// Returns an error if any field fails validation.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}

	if d.UserID == uuid.Nil {
		return ErrEmptyDocumentUserID
	}

	if d.Title == "" {
		return ErrEmptyDocumentTitle
	}

	if d.Content == "" {
		return ErrEmptyDocumentContent
	}

	if !d.Status.IsValid() {
		return ErrInvalidDocumentStatus
	}

	return nil
}

// UpdateStatus moves the document to the given status, guarding the legal
// lifecycle, and updates the UpdatedAt timestamp.
func (d *Document) UpdateStatus(status DocumentStatus) error {
	if !status.IsValid() {
		return ErrInvalidDocumentStatus
	}

	allowed := false
	for _, next := range legalTransitions[d.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrDocumentStatusTransition, d.Status, status)
	}

	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSummary stores the generated summary and updates the UpdatedAt
// timestamp. Status is advanced separately by the summary task.
func (d *Document) SetSummary(summary string) {
	d.Summary = summary
	d.UpdatedAt = time.Now().UTC()
}

// IsValid reports whether s is one of the defined document statuses.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusSummarizing, DocumentStatusReady,
		DocumentStatusFailed, DocumentStatusDeleting:
		return true
	default:
		return false
	}
}
