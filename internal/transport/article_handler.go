package transport

import (
	"net/http"
	"time"

	"shoplist/internal/middleware"
	"shoplist/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateArticleRequest represents the article creation payload. Store,
// category and brand are free-form names; unknown ones are created for the
// caller on the fly.
type CreateArticleRequest struct {
	Name     string          `json:"name" validate:"required"`
	Detail   string          `json:"detail"`
	Store    *string         `json:"store"`
	Category *string         `json:"category"`
	Brand    *string         `json:"brand"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Currency string          `json:"currency"`
}

// UpdateArticleRequest represents a partial article update. Absent fields
// stay untouched; an empty store/category/brand clears the association.
type UpdateArticleRequest struct {
	Name     *string          `json:"name"`
	Detail   *string          `json:"detail"`
	Store    *string          `json:"store"`
	Category *string          `json:"category"`
	Brand    *string          `json:"brand"`
	Price    *decimal.Decimal `json:"price"`
	Currency *string          `json:"currency"`
}

// ArticleHandler handles HTTP requests for catalog operations
type ArticleHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(catalog service.CatalogService, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers all article routes
func (h *ArticleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/articles", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.Find)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/price", h.Price)
		r.Get("/{id}/prices", h.Prices)
	})
}

// Create handles article creation
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateArticleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article, err := h.catalog.CreateArticle(r.Context(), actor, service.CreateArticleInput{
		Name:     req.Name,
		Detail:   req.Detail,
		Store:    req.Store,
		Category: req.Category,
		Brand:    req.Brand,
		Price:    req.Price,
		Currency: req.Currency,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Article created", zap.String("article_id", article.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, article)
}

// Find handles article listing with an optional name filter
func (h *ArticleHandler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	articles, err := h.catalog.FindArticles(r.Context(), actor, r.URL.Query().Get("name"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, articles)
}

// Get handles retrieval of a single article
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	article, err := h.catalog.GetArticle(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, article)
}

// Update handles partial article updates
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	var req UpdateArticleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article, err := h.catalog.UpdateArticle(r.Context(), actor, service.UpdateArticleInput{
		ID:       id,
		Name:     req.Name,
		Detail:   req.Detail,
		Store:    req.Store,
		Category: req.Category,
		Brand:    req.Brand,
		Price:    req.Price,
		Currency: req.Currency,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, article)
}

// Delete handles article deletion
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	if err := h.catalog.DeleteArticle(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Article deleted", zap.String("article_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Price resolves the article's price, optionally as of the RFC 3339
// instant in the "at" query parameter.
func (h *ArticleHandler) Price(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	var at *time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid at parameter, expected RFC 3339")
			return
		}
		at = &parsed
	}

	price, err := h.catalog.ArticlePrice(r.Context(), actor, id, at)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, price)
}

// Prices returns the article's full price history, oldest first
func (h *ArticleHandler) Prices(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	history, err := h.catalog.ArticlePrices(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, history)
}
