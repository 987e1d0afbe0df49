package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/tome-api/internal/api/shared"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/platform/logger"
	"github.com/phrazzld/tome-api/internal/service"
)

// UserHandler handles account endpoints for the authenticated user. The
// user id always comes from the access token, never from the request, so
// every operation is scoped to the caller's own account.
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
	validator   *validator.Validate
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		userService: userService,
		logger:      logger.With("component", "user_handler"),
		validator:   validator.New(),
	}
}

// GetMe handles GET /api/users/me: the caller's own profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	})
}

// UpdateMe handles PUT /api/users/me. Email and password update
// independently; a request may carry either or both, but not neither.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req UpdateUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Email == "" && req.Password == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No fields to update")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if req.Email != "" {
		if err := h.userService.UpdateUserEmail(r.Context(), userID, req.Email); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		log.Info("user email updated", "user_id", userID)
	}

	if req.Password != "" {
		if err := h.userService.UpdateUserPassword(r.Context(), userID, req.Password); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		log.Info("user password updated", "user_id", userID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe handles DELETE /api/users/me: removes the caller's account and,
// through the schema's cascade, their documents and operations.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("user account deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
