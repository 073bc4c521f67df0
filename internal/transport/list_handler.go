package transport

import (
	"net/http"
	"time"

	"shoplist/internal/domain"
	"shoplist/internal/middleware"
	"shoplist/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateListRequest represents the shopping list creation payload
type CreateListRequest struct {
	Title      string  `json:"title" validate:"required"`
	CategoryID *string `json:"category_id"`
}

// UpdateListRequest represents a partial list update. Absent fields stay
// untouched; an empty category_id clears the association.
type UpdateListRequest struct {
	Title      *string `json:"title"`
	CategoryID *string `json:"category_id"`
	Finalized  *bool   `json:"finalized"`
}

// AddItemRequest represents the payload for a new line item
type AddItemRequest struct {
	ArticleID  string           `json:"article_id" validate:"required,uuid"`
	Amount     decimal.Decimal  `json:"amount" validate:"required"`
	OfferPrice *decimal.Decimal `json:"offer_price"`
}

// UpdateItemRequest represents a partial line item update
type UpdateItemRequest struct {
	ArticleID  *string          `json:"article_id" validate:"omitempty,uuid"`
	Amount     *decimal.Decimal `json:"amount"`
	OfferPrice *decimal.Decimal `json:"offer_price"`
}

// ItemResponse is a line item joined with its article and priced as of the
// parent list's updated_at.
type ItemResponse struct {
	domain.ShoppingListItem
	ArticleName  string          `json:"article_name"`
	CategoryName *string         `json:"category_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineCost     decimal.Decimal `json:"line_cost"`
}

// CostStatusResponse reports whether the cached cost snapshot is current
type CostStatusResponse struct {
	UpToDate bool `json:"up_to_date"`
}

// ListHandler handles HTTP requests for shopping list operations
type ListHandler struct {
	lists  service.ListService
	cache  service.CostCacheService
	logger *zap.Logger
}

// NewListHandler creates a new ListHandler
func NewListHandler(lists service.ListService, cache service.CostCacheService, logger *zap.Logger) *ListHandler {
	return &ListHandler{lists: lists, cache: cache, logger: logger}
}

// RegisterRoutes registers all shopping list routes
func (h *ListHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/lists", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.Find)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		r.Post("/{id}/items", h.AddItem)
		r.Get("/{id}/items", h.ListItems)
		r.Get("/{id}/items/{itemID}", h.GetItem)
		r.Put("/{id}/items/{itemID}", h.UpdateItem)
		r.Delete("/{id}/items/{itemID}", h.RemoveItem)

		r.Get("/{id}/cost", h.Cost)
		r.Get("/{id}/cost/status", h.CostStatus)
	})
}

func itemResponse(view service.ItemView) ItemResponse {
	return ItemResponse{
		ShoppingListItem: view.Item,
		ArticleName:      view.ArticleName,
		CategoryName:     view.CategoryName,
		UnitPrice:        view.UnitPrice,
		LineCost:         view.LineCost,
	}
}

// parseCategoryID maps the request field to a category reference: nil stays
// nil, an empty string clears, anything else must be a UUID.
func parseCategoryID(raw *string) (*uuid.UUID, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// Create handles shopping list creation
func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateListRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, ok := parseCategoryID(req.CategoryID)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	list, err := h.lists.CreateList(r.Context(), actor, req.Title, categoryID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Shopping list created", zap.String("list_id", list.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, list)
}

// Find handles list retrieval, optionally restricted to lists last updated
// within the RFC 3339 instants in the "from" and "to" query parameters.
func (h *ListHandler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var from, to *time.Time
	for name, dst := range map[string]**time.Time{"from": &from, "to": &to} {
		if raw := r.URL.Query().Get(name); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name+" parameter, expected RFC 3339")
				return
			}
			*dst = &parsed
		}
	}

	lists, err := h.lists.FindLists(r.Context(), actor, from, to)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, lists)
}

// Get handles retrieval of a single list
func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	list, err := h.lists.GetList(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// Update handles title, category and finalized changes
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	var req UpdateListRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var list *domain.ShoppingList
	if req.Title != nil {
		if list, err = h.lists.SetTitle(r.Context(), actor, id, *req.Title); err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
	}
	if req.CategoryID != nil {
		categoryID, ok := parseCategoryID(req.CategoryID)
		if !ok {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
			return
		}
		if list, err = h.lists.SetCategory(r.Context(), actor, id, categoryID); err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
	}
	if req.Finalized != nil {
		if list, err = h.lists.SetFinalized(r.Context(), actor, id, *req.Finalized); err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
	}

	if list == nil {
		if list, err = h.lists.GetList(r.Context(), actor, id); err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// Delete handles list deletion
func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	if err := h.lists.DeleteList(r.Context(), actor, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Shopping list deleted", zap.String("list_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles adding a line item to a list
func (h *ListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	articleID, err := uuid.Parse(req.ArticleID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
		return
	}

	item, err := h.lists.AddItem(r.Context(), actor, listID, service.AddItemInput{
		ArticleID:  articleID,
		Amount:     req.Amount,
		OfferPrice: req.OfferPrice,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// ListItems handles retrieval of a list's priced items. Supports a "name"
// substring filter and a "sort" parameter (name, amount, cost, updated_at).
func (h *ListHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	views, err := h.lists.ListItems(r.Context(), actor, listID,
		r.URL.Query().Get("name"), service.ItemSort(r.URL.Query().Get("sort")))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	items := make([]ItemResponse, 0, len(views))
	for _, view := range views {
		items = append(items, itemResponse(view))
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// GetItem handles retrieval of a single priced line item
func (h *ListHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	view, err := h.lists.GetItem(r.Context(), actor, listID, itemID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, itemResponse(*view))
}

// UpdateItem handles partial line item updates
func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateItemInput{
		ID:         itemID,
		Amount:     req.Amount,
		OfferPrice: req.OfferPrice,
	}
	if req.ArticleID != nil {
		articleID, err := uuid.Parse(*req.ArticleID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid article ID")
			return
		}
		input.ArticleID = &articleID
	}

	item, err := h.lists.UpdateItem(r.Context(), actor, listID, input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// RemoveItem handles line item removal
func (h *ListHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := h.lists.RemoveItem(r.Context(), actor, listID, itemID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Cost serves the list's bucketed cost breakdown through the cache;
// "refresh=true" forces recomputation even when the snapshot is fresh.
func (h *ListHandler) Cost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	var breakdown domain.CostBreakdown
	if r.URL.Query().Get("refresh") == "true" {
		breakdown, err = h.cache.Refresh(r.Context(), actor, listID)
	} else {
		breakdown, err = h.cache.Read(r.Context(), actor, listID)
	}
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, breakdown)
}

// CostStatus reports whether the cached snapshot is current
func (h *ListHandler) CostStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid list ID")
		return
	}

	upToDate, err := h.cache.IsUpToDate(r.Context(), actor, listID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CostStatusResponse{UpToDate: upToDate})
}
