package generation

import (
	"context"

	"github.com/phrazzld/tome-api/internal/domain"
)

// SummaryGenerator defines the interface for producing a document summary.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type SummaryGenerator interface {
	// GenerateSummary creates a concise summary of the document's content.
	// It returns the summary text or an error if generation fails (see
	// errors.go for the specific error types callers can test against).
	GenerateSummary(ctx context.Context, doc *domain.Document) (string, error)
}
