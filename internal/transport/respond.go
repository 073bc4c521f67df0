package transport

import (
	"errors"
	"net/http"

	"shoplist/internal/domain"
	"shoplist/internal/middleware"
	"shoplist/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestActor builds the acting principal from the claims the auth
// middleware stored in the request context.
func requestActor(r *http.Request) (domain.Actor, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return domain.Actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return domain.Actor{}, false
	}

	role, ok := middleware.GetUserRole(r.Context())
	if !ok {
		return domain.Actor{}, false
	}

	return domain.Actor{UserID: userID, Role: role}, true
}

// pathID parses a UUID URL parameter
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// respondServiceError translates the service error taxonomy into HTTP
// status codes. Errors outside the taxonomy are logged and reported as
// internal faults without leaking detail.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
