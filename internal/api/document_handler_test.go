package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tome-api/internal/api/shared"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/service"
	"github.com/phrazzld/tome-api/internal/task"
)

// MockDocumentService implements service.DocumentService with function
// fields so each test configures exactly the behavior it needs.
type MockDocumentService struct {
	CreateDocumentAndEnqueueSummaryFn func(ctx context.Context, userID uuid.UUID, title, content string) (*domain.Document, uuid.UUID, error)
	GetDocumentForUserFn              func(ctx context.Context, userID, documentID uuid.UUID) (*domain.Document, error)
	ListDocumentsFn                   func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Document, error)
	GetDocumentFn                     func(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	UpdateDocumentStatusFn            func(ctx context.Context, documentID uuid.UUID, status domain.DocumentStatus) error
	SaveSummaryFn                     func(ctx context.Context, documentID uuid.UUID, summary string) error
}

func (m *MockDocumentService) CreateDocumentAndEnqueueSummary(
	ctx context.Context,
	userID uuid.UUID,
	title, content string,
) (*domain.Document, uuid.UUID, error) {
	return m.CreateDocumentAndEnqueueSummaryFn(ctx, userID, title, content)
}

func (m *MockDocumentService) GetDocumentForUser(
	ctx context.Context,
	userID, documentID uuid.UUID,
) (*domain.Document, error) {
	return m.GetDocumentForUserFn(ctx, userID, documentID)
}

func (m *MockDocumentService) ListDocuments(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Document, error) {
	return m.ListDocumentsFn(ctx, userID, limit, offset)
}

func (m *MockDocumentService) GetDocument(
	ctx context.Context,
	documentID uuid.UUID,
) (*domain.Document, error) {
	return m.GetDocumentFn(ctx, documentID)
}

func (m *MockDocumentService) UpdateDocumentStatus(
	ctx context.Context,
	documentID uuid.UUID,
	status domain.DocumentStatus,
) error {
	return m.UpdateDocumentStatusFn(ctx, documentID, status)
}

func (m *MockDocumentService) SaveSummary(
	ctx context.Context,
	documentID uuid.UUID,
	summary string,
) error {
	return m.SaveSummaryFn(ctx, documentID, summary)
}

// MockDeleteService implements service.DeleteService with function fields.
type MockDeleteService struct {
	DeleteDocumentFn func(ctx context.Context, userID, documentID uuid.UUID) (*service.DeleteReceipt, error)
	DeleteBatchFn    func(ctx context.Context, userID uuid.UUID, documentIDs []uuid.UUID) (*service.DeleteReceipt, error)
	GetOperationFn   func(ctx context.Context, userID, operationID uuid.UUID) (*domain.Operation, error)
	StatsValue       service.DeleteStats
}

func (m *MockDeleteService) DeleteDocument(
	ctx context.Context,
	userID, documentID uuid.UUID,
) (*service.DeleteReceipt, error) {
	return m.DeleteDocumentFn(ctx, userID, documentID)
}

func (m *MockDeleteService) DeleteBatch(
	ctx context.Context,
	userID uuid.UUID,
	documentIDs []uuid.UUID,
) (*service.DeleteReceipt, error) {
	return m.DeleteBatchFn(ctx, userID, documentIDs)
}

func (m *MockDeleteService) GetOperation(
	ctx context.Context,
	userID, operationID uuid.UUID,
) (*domain.Operation, error) {
	return m.GetOperationFn(ctx, userID, operationID)
}

func (m *MockDeleteService) Stats() service.DeleteStats {
	return m.StatsValue
}

// newAuthenticatedRequest builds a request carrying userID in its context
// and, optionally, chi path parameters.
func newAuthenticatedRequest(
	method, target string,
	body []byte,
	userID uuid.UUID,
	pathParams map[string]string,
) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = context.WithValue(ctx, shared.UserIDContextKey, userID)
	}

	if len(pathParams) > 0 {
		routeCtx := chi.NewRouteContext()
		for name, value := range pathParams {
			routeCtx.URLParams.Add(name, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}

	return req.WithContext(ctx)
}

func testDocument(userID uuid.UUID) *domain.Document {
	now := time.Now().UTC()
	return &domain.Document{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Quarterly Report",
		Content:   "Revenue grew in every region.",
		Status:    domain.DocumentStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDocumentHandler_CreateDocument(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	taskID := uuid.New()

	t.Run("accepts a valid document", func(t *testing.T) {
		t.Parallel()

		doc := testDocument(userID)
		docService := &MockDocumentService{
			CreateDocumentAndEnqueueSummaryFn: func(ctx context.Context, uid uuid.UUID, title, content string) (*domain.Document, uuid.UUID, error) {
				assert.Equal(t, userID, uid)
				assert.Equal(t, "Quarterly Report", title)
				return doc, taskID, nil
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		payload, err := json.Marshal(CreateDocumentRequest{
			Title:   "Quarterly Report",
			Content: "Revenue grew in every region.",
		})
		require.NoError(t, err)

		req := newAuthenticatedRequest("POST", "/api/documents", payload, userID, nil)
		recorder := httptest.NewRecorder()

		handler.CreateDocument(recorder, req)

		require.Equal(t, http.StatusAccepted, recorder.Code)

		var resp CreateDocumentResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, doc.ID, resp.Document.ID)
		assert.Equal(t, taskID, resp.TaskID)
		assert.Empty(t, resp.Document.Content, "create response should not echo content")
	})

	t.Run("rejects missing title", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		payload := []byte(`{"content":"body only"}`)
		req := newAuthenticatedRequest("POST", "/api/documents", payload, userID, nil)
		recorder := httptest.NewRecorder()

		handler.CreateDocument(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("POST", "/api/documents", []byte(`{not json`), userID, nil)
		recorder := httptest.NewRecorder()

		handler.CreateDocument(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		payload := []byte(`{"title":"t","content":"c"}`)
		req := newAuthenticatedRequest("POST", "/api/documents", payload, uuid.Nil, nil)
		recorder := httptest.NewRecorder()

		handler.CreateDocument(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("maps queue backpressure to 429", func(t *testing.T) {
		t.Parallel()

		docService := &MockDocumentService{
			CreateDocumentAndEnqueueSummaryFn: func(ctx context.Context, uid uuid.UUID, title, content string) (*domain.Document, uuid.UUID, error) {
				return nil, uuid.Nil, service.NewServiceError("document", "create", fmt.Errorf("enqueue failed: %w", task.ErrQueueFull))
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		payload := []byte(`{"title":"t","content":"c"}`)
		req := newAuthenticatedRequest("POST", "/api/documents", payload, userID, nil)
		recorder := httptest.NewRecorder()

		handler.CreateDocument(recorder, req)

		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	})
}

func TestDocumentHandler_GetDocument(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	doc := testDocument(userID)
	doc.Summary = "A short summary."
	doc.Status = domain.DocumentStatusReady

	t.Run("returns the document with content", func(t *testing.T) {
		t.Parallel()

		docService := &MockDocumentService{
			GetDocumentForUserFn: func(ctx context.Context, uid, documentID uuid.UUID) (*domain.Document, error) {
				assert.Equal(t, doc.ID, documentID)
				return doc, nil
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents/"+doc.ID.String(), nil, userID,
			map[string]string{"id": doc.ID.String()})
		recorder := httptest.NewRecorder()

		handler.GetDocument(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp DocumentResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, doc.ID, resp.ID)
		assert.Equal(t, doc.Content, resp.Content)
		assert.Equal(t, doc.Summary, resp.Summary)
		assert.Equal(t, string(domain.DocumentStatusReady), resp.Status)
	})

	t.Run("maps not found to 404", func(t *testing.T) {
		t.Parallel()

		docService := &MockDocumentService{
			GetDocumentForUserFn: func(ctx context.Context, uid, documentID uuid.UUID) (*domain.Document, error) {
				return nil, service.ErrDocumentNotFound
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents/"+doc.ID.String(), nil, userID,
			map[string]string{"id": doc.ID.String()})
		recorder := httptest.NewRecorder()

		handler.GetDocument(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("maps foreign ownership to 403", func(t *testing.T) {
		t.Parallel()

		docService := &MockDocumentService{
			GetDocumentForUserFn: func(ctx context.Context, uid, documentID uuid.UUID) (*domain.Document, error) {
				return nil, service.ErrNotOwned
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents/"+doc.ID.String(), nil, userID,
			map[string]string{"id": doc.ID.String()})
		recorder := httptest.NewRecorder()

		handler.GetDocument(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents/not-a-uuid", nil, userID,
			map[string]string{"id": "not-a-uuid"})
		recorder := httptest.NewRecorder()

		handler.GetDocument(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestDocumentHandler_ListDocuments(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("lists documents without content", func(t *testing.T) {
		t.Parallel()

		docs := []*domain.Document{testDocument(userID), testDocument(userID)}
		docService := &MockDocumentService{
			ListDocumentsFn: func(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*domain.Document, error) {
				assert.Equal(t, defaultListLimit, limit)
				assert.Equal(t, 0, offset)
				return docs, nil
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents", nil, userID, nil)
		recorder := httptest.NewRecorder()

		handler.ListDocuments(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp DocumentListResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		require.Len(t, resp.Documents, 2)
		assert.Empty(t, resp.Documents[0].Content)
		assert.Equal(t, defaultListLimit, resp.Limit)
	})

	t.Run("caps limit at the maximum", func(t *testing.T) {
		t.Parallel()

		docService := &MockDocumentService{
			ListDocumentsFn: func(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*domain.Document, error) {
				assert.Equal(t, maxListLimit, limit)
				assert.Equal(t, 40, offset)
				return nil, nil
			},
		}
		handler := NewDocumentHandler(docService, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents?limit=5000&offset=40", nil, userID, nil)
		recorder := httptest.NewRecorder()

		handler.ListDocuments(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents?limit=abc", nil, userID, nil)
		recorder := httptest.NewRecorder()

		handler.ListDocuments(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects a negative offset", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/documents?offset=-1", nil, userID, nil)
		recorder := httptest.NewRecorder()

		handler.ListDocuments(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestDocumentHandler_DeleteDocument(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	documentID := uuid.New()

	t.Run("accepts the delete and returns the receipt", func(t *testing.T) {
		t.Parallel()

		receipt := &service.DeleteReceipt{
			OperationID: uuid.New(),
			TaskIDs:     []uuid.UUID{uuid.New()},
		}
		deleteService := &MockDeleteService{
			DeleteDocumentFn: func(ctx context.Context, uid, docID uuid.UUID) (*service.DeleteReceipt, error) {
				assert.Equal(t, userID, uid)
				assert.Equal(t, documentID, docID)
				return receipt, nil
			},
		}
		handler := NewDocumentHandler(&MockDocumentService{}, deleteService, slog.Default())

		req := newAuthenticatedRequest("DELETE", "/api/documents/"+documentID.String(), nil, userID,
			map[string]string{"id": documentID.String()})
		recorder := httptest.NewRecorder()

		handler.DeleteDocument(recorder, req)

		require.Equal(t, http.StatusAccepted, recorder.Code)

		var resp DeleteAcceptedResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, receipt.OperationID, resp.OperationID)
		assert.Equal(t, receipt.TaskIDs, resp.TaskIDs)
	})

	t.Run("maps foreign ownership to 403", func(t *testing.T) {
		t.Parallel()

		deleteService := &MockDeleteService{
			DeleteDocumentFn: func(ctx context.Context, uid, docID uuid.UUID) (*service.DeleteReceipt, error) {
				return nil, service.ErrNotOwned
			},
		}
		handler := NewDocumentHandler(&MockDocumentService{}, deleteService, slog.Default())

		req := newAuthenticatedRequest("DELETE", "/api/documents/"+documentID.String(), nil, userID,
			map[string]string{"id": documentID.String()})
		recorder := httptest.NewRecorder()

		handler.DeleteDocument(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestDocumentHandler_BatchDelete(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("accepts the batch and returns the receipt", func(t *testing.T) {
		t.Parallel()

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		receipt := &service.DeleteReceipt{
			OperationID: uuid.New(),
			TaskIDs:     []uuid.UUID{uuid.New()},
		}
		deleteService := &MockDeleteService{
			DeleteBatchFn: func(ctx context.Context, uid uuid.UUID, documentIDs []uuid.UUID) (*service.DeleteReceipt, error) {
				assert.Equal(t, ids, documentIDs)
				return receipt, nil
			},
		}
		handler := NewDocumentHandler(&MockDocumentService{}, deleteService, slog.Default())

		payload, err := json.Marshal(BatchDeleteRequest{DocumentIDs: ids})
		require.NoError(t, err)

		req := newAuthenticatedRequest("POST", "/api/documents/batch-delete", payload, userID, nil)
		recorder := httptest.NewRecorder()

		handler.BatchDelete(recorder, req)

		require.Equal(t, http.StatusAccepted, recorder.Code)

		var resp DeleteAcceptedResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, receipt.OperationID, resp.OperationID)
	})

	t.Run("rejects an empty id list", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("POST", "/api/documents/batch-delete",
			[]byte(`{"document_ids":[]}`), userID, nil)
		recorder := httptest.NewRecorder()

		handler.BatchDelete(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		handler := NewDocumentHandler(&MockDocumentService{}, &MockDeleteService{}, slog.Default())

		req := newAuthenticatedRequest("POST", "/api/documents/batch-delete",
			[]byte(`{"document_ids":["`+uuid.New().String()+`"]}`), uuid.Nil, nil)
		recorder := httptest.NewRecorder()

		handler.BatchDelete(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestDocumentHandler_GetOperation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns the operation record", func(t *testing.T) {
		t.Parallel()

		op, err := domain.NewOperation(userID, uuid.New(), domain.OperationKindBatchDelete, 3)
		require.NoError(t, err)

		deleteService := &MockDeleteService{
			GetOperationFn: func(ctx context.Context, uid, operationID uuid.UUID) (*domain.Operation, error) {
				assert.Equal(t, op.ID, operationID)
				return op, nil
			},
		}
		handler := NewDocumentHandler(&MockDocumentService{}, deleteService, slog.Default())

		req := newAuthenticatedRequest("GET", "/api/operations/"+op.ID.String(), nil, userID,
			map[string]string{"id": op.ID.String()})
		recorder := httptest.NewRecorder()

		handler.GetOperation(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var resp domain.Operation
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, op.ID, resp.ID)
		assert.Equal(t, 3, resp.RequestedCount)
	})

	t.Run("maps unknown operation to 404", func(t *testing.T) {
		t.Parallel()

		deleteService := &MockDeleteService{
			GetOperationFn: func(ctx context.Context, uid, operationID uuid.UUID) (*domain.Operation, error) {
				return nil, service.ErrOperationNotFound
			},
		}
		handler := NewDocumentHandler(&MockDocumentService{}, deleteService, slog.Default())

		operationID := uuid.New()
		req := newAuthenticatedRequest("GET", "/api/operations/"+operationID.String(), nil, userID,
			map[string]string{"id": operationID.String()})
		recorder := httptest.NewRecorder()

		handler.GetOperation(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
