package generation

import (
	"context"

	"github.com/phrazzld/tome-api/internal/domain"
)

// MockGenerator is a simple implementation of the SummaryGenerator
// interface for testing
type MockGenerator struct {
	// GenerateSummaryFn is invoked by GenerateSummary when set.
	GenerateSummaryFn func(ctx context.Context, doc *domain.Document) (string, error)

	// Summary and Err are returned when GenerateSummaryFn is nil.
	Summary string
	Err     error

	// Calls counts how many times GenerateSummary was invoked.
	Calls int
}

// NewMockGenerator creates a MockGenerator that returns the given summary
// and error
func NewMockGenerator(summary string, err error) *MockGenerator {
	return &MockGenerator{
		Summary: summary,
		Err:     err,
	}
}

// GenerateSummary returns the configured summary or delegates to
// GenerateSummaryFn
func (m *MockGenerator) GenerateSummary(ctx context.Context, doc *domain.Document) (string, error) {
	m.Calls++
	if m.GenerateSummaryFn != nil {
		return m.GenerateSummaryFn(ctx, doc)
	}
	return m.Summary, m.Err
}

// Ensure MockGenerator implements SummaryGenerator
var _ SummaryGenerator = (*MockGenerator)(nil)
