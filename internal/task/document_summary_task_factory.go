package task

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/generation"
)

// DocumentSummaryTaskFactory creates DocumentSummaryTask instances with
// shared dependencies, so event handlers only need a document id.
type DocumentSummaryTaskFactory struct {
	docService  DocumentService
	generator   generation.SummaryGenerator
	resultCache *cache.ResultCache
	logger      *slog.Logger
}

// NewDocumentSummaryTaskFactory creates a factory over the given
// dependencies. resultCache may be nil.
func NewDocumentSummaryTaskFactory(
	docService DocumentService,
	generator generation.SummaryGenerator,
	resultCache *cache.ResultCache,
	logger *slog.Logger,
) *DocumentSummaryTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentSummaryTaskFactory{
		docService:  docService,
		generator:   generator,
		resultCache: resultCache,
		logger:      logger,
	}
}

// CreateTask creates a new DocumentSummaryTask for the specified document.
func (f *DocumentSummaryTaskFactory) CreateTask(documentID uuid.UUID) (Task, error) {
	return NewDocumentSummaryTask(documentID, f.docService, f.generator, f.resultCache, f.logger)
}
