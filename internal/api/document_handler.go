package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/tome-api/internal/api/shared"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/platform/logger"
	"github.com/phrazzld/tome-api/internal/service"
)

// Default page size for document listings.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentHandler handles document-related API requests: uploads, reads,
// and the asynchronous delete endpoints.
type DocumentHandler struct {
	docService    service.DocumentService
	deleteService service.DeleteService
	logger        *slog.Logger
	validator     *validator.Validate
}

// NewDocumentHandler creates a new DocumentHandler with the given dependencies.
func NewDocumentHandler(
	docService service.DocumentService,
	deleteService service.DeleteService,
	logger *slog.Logger,
) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{
		docService:    docService,
		deleteService: deleteService,
		logger:        logger.With("component", "document_handler"),
		validator:     validator.New(),
	}
}

// toDocumentResponse converts a domain document to its API representation.
func toDocumentResponse(doc *domain.Document, includeContent bool) DocumentResponse {
	resp := DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Summary:   doc.Summary,
		Status:    string(doc.Status),
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
	}
	if includeContent {
		resp.Content = doc.Content
	}
	return resp
}

// CreateDocument handles POST /api/documents. The document is stored
// synchronously; summarization happens in a background task whose id is
// returned so the client can poll the task API.
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateDocumentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	doc, taskID, err := h.docService.CreateDocumentAndEnqueueSummary(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("document accepted",
		"document_id", doc.ID,
		"task_id", taskID,
		"user_id", userID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateDocumentResponse{
		Document: toDocumentResponse(doc, false),
		TaskID:   taskID,
	})
}

// GetDocument handles GET /api/documents/{id}.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, documentID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	doc, err := h.docService.GetDocumentForUser(r.Context(), userID, documentID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toDocumentResponse(doc, true))
}

// ListDocuments handles GET /api/documents with limit/offset pagination.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset parameter")
			return
		}
		offset = parsed
	}

	docs, err := h.docService.ListDocuments(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentResponse(doc, false))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DocumentListResponse{
		Documents: items,
		Limit:     limit,
		Offset:    offset,
	})
}

// DeleteDocument handles DELETE /api/documents/{id}. Deletion runs as a
// high-priority background task; the response carries the operation and
// task ids for tracking.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, documentID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	receipt, err := h.deleteService.DeleteDocument(r.Context(), userID, documentID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("document delete accepted",
		"document_id", documentID,
		"operation_id", receipt.OperationID,
		"user_id", userID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, DeleteAcceptedResponse{
		OperationID: receipt.OperationID,
		TaskIDs:     receipt.TaskIDs,
	})
}

// BatchDelete handles POST /api/documents/batch-delete. Documents are
// deleted in medium-priority chunks; one operation row covers the request.
func (h *DocumentHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req BatchDeleteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	receipt, err := h.deleteService.DeleteBatch(r.Context(), userID, req.DocumentIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("batch delete accepted",
		"operation_id", receipt.OperationID,
		"requested", len(req.DocumentIDs),
		"user_id", userID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, DeleteAcceptedResponse{
		OperationID: receipt.OperationID,
		TaskIDs:     receipt.TaskIDs,
	})
}

// GetOperation handles GET /api/operations/{id}: the audit record of a
// delete operation, including its final counts once concluded.
func (h *DocumentHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	userID, operationID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	op, err := h.deleteService.GetOperation(r.Context(), userID, operationID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, op)
}
