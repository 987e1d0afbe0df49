package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyDocumentText is returned when a document has no content to summarize.
	ErrEmptyDocumentText = errors.New("document text cannot be empty")
)
