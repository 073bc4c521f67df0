package transport

import (
	"net/http"

	"shoplist/internal/middleware"
	"shoplist/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReferenceRequest carries the name for creating or renaming a store,
// category or brand.
type ReferenceRequest struct {
	Name string `json:"name" validate:"required"`
}

// ReferenceHandler handles HTTP requests for one reference entity kind.
// One instance is mounted per kind under its own path.
type ReferenceHandler struct {
	refs   service.ReferenceService
	path   string
	logger *zap.Logger
}

// NewReferenceHandler creates a ReferenceHandler mounted at /api/<path>
func NewReferenceHandler(refs service.ReferenceService, path string, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, path: path, logger: logger}
}

// RegisterRoutes registers the entity's routes
func (h *ReferenceHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/"+h.path, func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Rename)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *ReferenceHandler) decode(w http.ResponseWriter, r *http.Request) (ReferenceRequest, bool) {
	var req ReferenceRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return req, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// Create handles entity creation
func (h *ReferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	ref, err := h.refs.Create(r.Context(), actor, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ref)
}

// List handles listing the caller's entities
func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	refs, err := h.refs.List(r.Context(), actor)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, refs)
}

// Get handles retrieval of a single entity
func (h *ReferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	ref, err := h.refs.Get(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ref)
}

// Rename handles renaming an entity
func (h *ReferenceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	ref, err := h.refs.Rename(r.Context(), actor, id, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ref)
}

// Delete handles entity deletion; refused while articles still use it
func (h *ReferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ID")
		return
	}

	if err := h.refs.Delete(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
