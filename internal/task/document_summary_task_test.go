package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/phrazzld/tome-api/internal/cache"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDocumentService mock implementation of DocumentService
type MockDocumentService struct {
	GetDocumentFn          func(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	UpdateDocumentStatusFn func(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) (err error)
	SaveSummaryFn          func(ctx context.Context, documentID uuid.UUID, summary string) error

	StatusUpdates  []domain.DocumentStatus
	SavedSummaries []string
}

func (m *MockDocumentService) GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	if m.GetDocumentFn != nil {
		return m.GetDocumentFn(ctx, documentID)
	}
	return &domain.Document{
		ID:      documentID,
		UserID:  uuid.New(),
		Title:   "Test Document",
		Content: "Some content worth summarizing.",
		Status:  domain.DocumentStatusUploaded,
	}, nil
}

func (m *MockDocumentService) UpdateDocumentStatus(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error {
	m.StatusUpdates = append(m.StatusUpdates, status)
	if m.UpdateDocumentStatusFn != nil {
		return m.UpdateDocumentStatusFn(ctx, documentID, status)
	}
	return nil
}

func (m *MockDocumentService) SaveSummary(ctx context.Context, documentID uuid.UUID, summary string) error {
	m.SavedSummaries = append(m.SavedSummaries, summary)
	if m.SaveSummaryFn != nil {
		return m.SaveSummaryFn(ctx, documentID, summary)
	}
	return nil
}

func TestNewDocumentSummaryTask_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docService := &MockDocumentService{}
	generator := generation.NewMockGenerator("summary", nil)

	testCases := []struct {
		name       string
		documentID uuid.UUID
		docService DocumentService
		generator  generation.SummaryGenerator
		logger     *slog.Logger
		wantErr    error
	}{
		{"nil document service", uuid.New(), nil, generator, logger, ErrNilDocumentService},
		{"nil generator", uuid.New(), docService, nil, logger, ErrNilGenerator},
		{"nil logger", uuid.New(), docService, generator, nil, ErrNilLogger},
		{"empty document ID", uuid.Nil, docService, generator, logger, ErrEmptyDocumentID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDocumentSummaryTask(tc.documentID, tc.docService, tc.generator, nil, tc.logger)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("valid dependencies", func(t *testing.T) {
		task, err := NewDocumentSummaryTask(uuid.New(), docService, generator, nil, logger)
		require.NoError(t, err)
		assert.NotNil(t, task)
	})
}

func TestDocumentSummaryTask_Execute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("successful pipeline", func(t *testing.T) {
		documentID := uuid.New()
		docService := &MockDocumentService{}
		generator := generation.NewMockGenerator("a concise summary", nil)

		task, err := NewDocumentSummaryTask(documentID, docService, generator, nil, logger)
		require.NoError(t, err)

		result, err := task.Execute(context.Background())
		require.NoError(t, err)

		summaryResult, ok := result.(SummaryResult)
		require.True(t, ok, "result should be a SummaryResult")
		assert.Equal(t, documentID, summaryResult.DocumentID)
		assert.Equal(t, "a concise summary", summaryResult.Summary)

		assert.Equal(t,
			[]domain.DocumentStatus{domain.DocumentStatusSummarizing, domain.DocumentStatusReady},
			docService.StatusUpdates)
		assert.Equal(t, []string{"a concise summary"}, docService.SavedSummaries)
	})

	t.Run("document not found", func(t *testing.T) {
		notFound := errors.New("document not found")
		docService := &MockDocumentService{
			GetDocumentFn: func(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
				return nil, notFound
			},
		}
		generator := generation.NewMockGenerator("unused", nil)

		task, err := NewDocumentSummaryTask(uuid.New(), docService, generator, nil, logger)
		require.NoError(t, err)

		_, err = task.Execute(context.Background())
		assert.ErrorIs(t, err, notFound)
		assert.Empty(t, docService.StatusUpdates)
		assert.Equal(t, 0, generator.Calls)
	})

	t.Run("generation failure marks document failed", func(t *testing.T) {
		genErr := errors.New("model unavailable")
		docService := &MockDocumentService{}
		generator := generation.NewMockGenerator("", genErr)

		task, err := NewDocumentSummaryTask(uuid.New(), docService, generator, nil, logger)
		require.NoError(t, err)

		_, err = task.Execute(context.Background())
		assert.ErrorIs(t, err, genErr)

		assert.Equal(t,
			[]domain.DocumentStatus{domain.DocumentStatusSummarizing, domain.DocumentStatusFailed},
			docService.StatusUpdates)
		assert.Empty(t, docService.SavedSummaries)
	})

	t.Run("save failure marks document failed", func(t *testing.T) {
		saveErr := errors.New("database unavailable")
		docService := &MockDocumentService{
			SaveSummaryFn: func(ctx context.Context, documentID uuid.UUID, summary string) error {
				return saveErr
			},
		}
		generator := generation.NewMockGenerator("a summary", nil)

		task, err := NewDocumentSummaryTask(uuid.New(), docService, generator, nil, logger)
		require.NoError(t, err)

		_, err = task.Execute(context.Background())
		assert.ErrorIs(t, err, saveErr)

		assert.Equal(t,
			[]domain.DocumentStatus{domain.DocumentStatusSummarizing, domain.DocumentStatusFailed},
			docService.StatusUpdates)
	})

	t.Run("caches result under task id", func(t *testing.T) {
		srv := miniredis.RunT(t)
		resultCache := cache.NewResultCache(srv.Addr(), logger)
		defer func() { _ = resultCache.Close() }()

		documentID := uuid.New()
		taskID := uuid.New()
		docService := &MockDocumentService{}
		generator := generation.NewMockGenerator("cached summary", nil)

		task, err := NewDocumentSummaryTask(documentID, docService, generator, resultCache, logger)
		require.NoError(t, err)

		// The scheduler stamps the task id into the execution context.
		ctx := withTaskID(context.Background(), taskID)
		_, err = task.Execute(ctx)
		require.NoError(t, err)

		data, err := resultCache.GetResult(context.Background(), taskID.String())
		require.NoError(t, err)

		var cached SummaryResult
		require.NoError(t, json.Unmarshal(data, &cached))
		assert.Equal(t, documentID, cached.DocumentID)
		assert.Equal(t, "cached summary", cached.Summary)

		// The document link makes the entry evictable when the document
		// is deleted.
		require.NoError(t, resultCache.EvictDocument(context.Background(), documentID.String()))
		_, err = resultCache.GetResult(context.Background(), taskID.String())
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("nil cache is skipped", func(t *testing.T) {
		docService := &MockDocumentService{}
		generator := generation.NewMockGenerator("summary", nil)

		task, err := NewDocumentSummaryTask(uuid.New(), docService, generator, nil, logger)
		require.NoError(t, err)

		ctx := withTaskID(context.Background(), uuid.New())
		_, err = task.Execute(ctx)
		assert.NoError(t, err)
	})
}

func TestDocumentSummaryTaskFactory_CreateTask(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docService := &MockDocumentService{}
	generator := generation.NewMockGenerator("summary", nil)

	factory := NewDocumentSummaryTaskFactory(docService, generator, nil, logger)

	t.Run("creates tasks for valid document ids", func(t *testing.T) {
		task, err := factory.CreateTask(uuid.New())
		require.NoError(t, err)
		assert.IsType(t, &DocumentSummaryTask{}, task)
	})

	t.Run("rejects nil document id", func(t *testing.T) {
		_, err := factory.CreateTask(uuid.Nil)
		assert.ErrorIs(t, err, ErrEmptyDocumentID)
	})
}
