package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"shoplist/internal/domain"
	"shoplist/internal/ledger"
	"shoplist/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemSort selects the ordering of a list's items
type ItemSort string

const (
	ItemSortName      ItemSort = "name"
	ItemSortAmount    ItemSort = "amount"
	ItemSortCost      ItemSort = "cost"
	ItemSortUpdatedAt ItemSort = "updated_at"
)

// AddItemInput carries the fields for a new list item
type AddItemInput struct {
	ArticleID  uuid.UUID
	Amount     decimal.Decimal
	OfferPrice *decimal.Decimal
}

// UpdateItemInput carries a partial item update; nil fields stay untouched
type UpdateItemInput struct {
	ID         uuid.UUID
	ArticleID  *uuid.UUID
	Amount     *decimal.Decimal
	OfferPrice *decimal.Decimal
}

// ItemView is a list item joined with its article and priced as of the
// parent list's updated_at.
type ItemView struct {
	Item         domain.ShoppingListItem
	ArticleName  string
	CategoryName *string
	UnitPrice    decimal.Decimal
	LineCost     decimal.Decimal
}

// ListService defines the interface for shopping list business logic
type ListService interface {
	CreateList(ctx context.Context, actor domain.Actor, title string, categoryID *uuid.UUID) (*domain.ShoppingList, error)
	GetList(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ShoppingList, error)
	FindLists(ctx context.Context, actor domain.Actor, from, to *time.Time) ([]*domain.ShoppingList, error)
	SetTitle(ctx context.Context, actor domain.Actor, id uuid.UUID, title string) (*domain.ShoppingList, error)
	SetCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, categoryID *uuid.UUID) (*domain.ShoppingList, error)
	SetFinalized(ctx context.Context, actor domain.Actor, id uuid.UUID, finalized bool) (*domain.ShoppingList, error)
	DeleteList(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	AddItem(ctx context.Context, actor domain.Actor, listID uuid.UUID, input AddItemInput) (*domain.ShoppingListItem, error)
	UpdateItem(ctx context.Context, actor domain.Actor, listID uuid.UUID, input UpdateItemInput) (*domain.ShoppingListItem, error)
	RemoveItem(ctx context.Context, actor domain.Actor, listID, itemID uuid.UUID) error
	GetItem(ctx context.Context, actor domain.Actor, listID, itemID uuid.UUID) (*ItemView, error)
	ListItems(ctx context.Context, actor domain.Actor, listID uuid.UUID, nameFilter string, sortBy ItemSort) ([]ItemView, error)

	Cost(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error)
}

type listService struct {
	lists      repository.ListRepository
	items      repository.ListItemRepository
	articles   repository.ArticleRepository
	prices     repository.PriceRepository
	categories repository.ReferenceRepository
}

// NewListService creates a new instance of ListService
func NewListService(
	lists repository.ListRepository,
	items repository.ListItemRepository,
	articles repository.ArticleRepository,
	prices repository.PriceRepository,
	categories repository.ReferenceRepository,
) ListService {
	return &listService{
		lists:      lists,
		items:      items,
		articles:   articles,
		prices:     prices,
		categories: categories,
	}
}

// getOwnedList loads a list, hiding other owners' lists from non-admin
// actors as not-found rather than forbidden.
func (s *listService) getOwnedList(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ShoppingList, error) {
	return loadOwnedList(ctx, s.lists, actor, id)
}

func loadOwnedList(ctx context.Context, lists repository.ListRepository, actor domain.Actor, id uuid.UUID) (*domain.ShoppingList, error) {
	list, err := lists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListNotFound) {
			return nil, fmt.Errorf("%w: shopping list %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load shopping list: %w", err)
	}

	if !actor.IsAdmin() && list.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: shopping list %s", ErrNotFound, id)
	}

	return list, nil
}

func (s *listService) checkCategory(ctx context.Context, actor domain.Actor, categoryID uuid.UUID) error {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return fmt.Errorf("%w: category %s", ErrNotFound, categoryID)
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	if !actor.IsAdmin() && category.OwnerID != actor.UserID {
		return fmt.Errorf("%w: category %s", ErrNotFound, categoryID)
	}
	return nil
}

// CreateList inserts a new, un-finalized shopping list
func (s *listService) CreateList(ctx context.Context, actor domain.Actor, title string, categoryID *uuid.UUID) (*domain.ShoppingList, error) {
	cleaned, err := cleanName("list title", title)
	if err != nil {
		return nil, err
	}

	if categoryID != nil {
		if err := s.checkCategory(ctx, actor, *categoryID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	list := &domain.ShoppingList{
		ID:         uuid.New(),
		Title:      cleaned,
		Finalized:  false,
		CategoryID: categoryID,
		OwnerID:    actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.lists.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}

	return list, nil
}

// GetList retrieves one list visible to the actor
func (s *listService) GetList(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ShoppingList, error) {
	return s.getOwnedList(ctx, actor, id)
}

// FindLists retrieves the actor's lists, optionally restricted to those
// last updated within [from, to].
func (s *listService) FindLists(ctx context.Context, actor domain.Actor, from, to *time.Time) ([]*domain.ShoppingList, error) {
	lists, err := s.lists.ListByOwner(ctx, actor.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find shopping lists: %w", err)
	}
	return lists, nil
}

// SetTitle renames the list; an unchanged title does not advance updated_at
func (s *listService) SetTitle(ctx context.Context, actor domain.Actor, id uuid.UUID, title string) (*domain.ShoppingList, error) {
	list, err := s.getOwnedList(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	cleaned, err := cleanName("list title", title)
	if err != nil {
		return nil, err
	}
	if cleaned == list.Title {
		return list, nil
	}

	list.Title = cleaned
	list.UpdatedAt = time.Now().UTC()
	if err := s.lists.Update(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to update shopping list: %w", err)
	}

	return list, nil
}

// SetCategory re-categorizes the list; an unchanged category does not
// advance updated_at.
func (s *listService) SetCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, categoryID *uuid.UUID) (*domain.ShoppingList, error) {
	list, err := s.getOwnedList(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if categoryID != nil {
		if err := s.checkCategory(ctx, actor, *categoryID); err != nil {
			return nil, err
		}
	}

	unchanged := (categoryID == nil && list.CategoryID == nil) ||
		(categoryID != nil && list.CategoryID != nil && *categoryID == *list.CategoryID)
	if unchanged {
		return list, nil
	}

	list.CategoryID = categoryID
	list.UpdatedAt = time.Now().UTC()
	if err := s.lists.Update(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to update shopping list: %w", err)
	}

	return list, nil
}

// SetFinalized freezes or unfreezes the list for item-level mutation
func (s *listService) SetFinalized(ctx context.Context, actor domain.Actor, id uuid.UUID, finalized bool) (*domain.ShoppingList, error) {
	list, err := s.getOwnedList(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if list.Finalized == finalized {
		return list, nil
	}

	list.Finalized = finalized
	list.UpdatedAt = time.Now().UTC()
	if err := s.lists.Update(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to update shopping list: %w", err)
	}

	return list, nil
}

// DeleteList removes the list; items and cached cost rows cascade. Deletion
// is allowed regardless of the finalized flag: a finalized list can only go
// away as a whole.
func (s *listService) DeleteList(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	list, err := s.getOwnedList(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.lists.Delete(ctx, list.ID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}

	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// normalizeOffer clears an offer price matching the regular price resolved
// at the given instant; an offer equal to the ledger price is no override.
func (s *listService) normalizeOffer(ctx context.Context, articleID uuid.UUID, offer *decimal.Decimal, at time.Time) (*decimal.Decimal, error) {
	if offer == nil {
		return nil, nil
	}
	if offer.Cmp(decimal.Zero) <= 0 {
		return nil, fmt.Errorf("%w: offer price must be positive", ErrValidation)
	}

	history, err := s.prices.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	regular, err := ledger.Resolve(history, &at)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve regular price: %w", err)
	}

	if offer.Equal(regular.Price) {
		return nil, nil
	}

	value := *offer
	return &value, nil
}

// AddItem appends a line item for an article not yet on the list
func (s *listService) AddItem(ctx context.Context, actor domain.Actor, listID uuid.UUID, input AddItemInput) (*domain.ShoppingListItem, error) {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}
	if list.Finalized {
		return nil, fmt.Errorf("%w: shopping list %s is finalized", ErrConflict, listID)
	}

	article, err := s.articles.FindByID(ctx, input.ArticleID)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			return nil, fmt.Errorf("%w: article %s", ErrNotFound, input.ArticleID)
		}
		return nil, fmt.Errorf("failed to load article: %w", err)
	}
	if !actor.IsAdmin() && article.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: article %s", ErrNotFound, input.ArticleID)
	}

	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	contains, err := s.items.HasArticle(ctx, list.ID, article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check list for article: %w", err)
	}
	if contains {
		return nil, fmt.Errorf("%w: shopping list already contains article %q", ErrConflict, article.Name)
	}

	now := time.Now().UTC()
	offer, err := s.normalizeOffer(ctx, article.ID, input.OfferPrice, now)
	if err != nil {
		return nil, err
	}

	item := &domain.ShoppingListItem{
		ID:         uuid.New(),
		ListID:     list.ID,
		ArticleID:  article.ID,
		Amount:     input.Amount,
		OfferPrice: offer,
		OwnerID:    list.OwnerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateArticle) {
			return nil, fmt.Errorf("%w: shopping list already contains article %q", ErrConflict, article.Name)
		}
		return nil, fmt.Errorf("failed to create list item: %w", err)
	}

	return item, nil
}

// UpdateItem applies a partial update to a line item
func (s *listService) UpdateItem(ctx context.Context, actor domain.Actor, listID uuid.UUID, input UpdateItemInput) (*domain.ShoppingListItem, error) {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}
	if list.Finalized {
		return nil, fmt.Errorf("%w: shopping list %s is finalized", ErrConflict, listID)
	}

	item, err := s.items.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrListItemNotFound) {
			return nil, fmt.Errorf("%w: list item %s", ErrNotFound, input.ID)
		}
		return nil, fmt.Errorf("failed to load list item: %w", err)
	}
	if item.ListID != list.ID {
		return nil, fmt.Errorf("%w: list item %s", ErrNotFound, input.ID)
	}

	if input.ArticleID != nil && *input.ArticleID != item.ArticleID {
		article, err := s.articles.FindByID(ctx, *input.ArticleID)
		if err != nil {
			if errors.Is(err, repository.ErrArticleNotFound) {
				return nil, fmt.Errorf("%w: article %s", ErrNotFound, *input.ArticleID)
			}
			return nil, fmt.Errorf("failed to load article: %w", err)
		}
		if !actor.IsAdmin() && article.OwnerID != actor.UserID {
			return nil, fmt.Errorf("%w: article %s", ErrNotFound, *input.ArticleID)
		}

		contains, err := s.items.HasArticle(ctx, list.ID, article.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check list for article: %w", err)
		}
		if contains {
			return nil, fmt.Errorf("%w: shopping list already contains article %q", ErrConflict, article.Name)
		}

		item.ArticleID = article.ID
	}

	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		item.Amount = *input.Amount
	}

	now := time.Now().UTC()
	if input.OfferPrice != nil {
		if item.OfferPrice, err = s.normalizeOffer(ctx, item.ArticleID, input.OfferPrice, now); err != nil {
			return nil, err
		}
	}

	item.UpdatedAt = now
	if err := s.items.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateArticle) {
			return nil, fmt.Errorf("%w: shopping list already contains this article", ErrConflict)
		}
		if errors.Is(err, repository.ErrListItemNotFound) {
			return nil, fmt.Errorf("%w: list item %s", ErrNotFound, input.ID)
		}
		return nil, fmt.Errorf("failed to update list item: %w", err)
	}

	return item, nil
}

// RemoveItem deletes a line item from an un-finalized list
func (s *listService) RemoveItem(ctx context.Context, actor domain.Actor, listID, itemID uuid.UUID) error {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return err
	}
	if list.Finalized {
		return fmt.Errorf("%w: shopping list %s is finalized", ErrConflict, listID)
	}

	if err := s.items.Delete(ctx, itemID, list.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrListItemNotFound) {
			return fmt.Errorf("%w: list item %s", ErrNotFound, itemID)
		}
		return fmt.Errorf("failed to delete list item: %w", err)
	}

	return nil
}

// viewItems prices a list's item rows as of the list's updated_at
func (s *listService) viewItems(ctx context.Context, list *domain.ShoppingList, rows []repository.ListItemRow) ([]ItemView, error) {
	articleIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		articleIDs = append(articleIDs, row.Item.ArticleID)
	}

	histories, err := s.prices.ListByArticles(ctx, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load price histories: %w", err)
	}

	views := make([]ItemView, 0, len(rows))
	for _, row := range rows {
		unit, err := ledger.UnitPrice(row.Item, histories[row.Item.ArticleID], list.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to price item %s: %w", row.Item.ID, err)
		}
		views = append(views, ItemView{
			Item:         row.Item,
			ArticleName:  row.ArticleName,
			CategoryName: row.CategoryName,
			UnitPrice:    unit,
			LineCost:     row.Item.Amount.Mul(unit),
		})
	}

	return views, nil
}

// GetItem retrieves one priced line item
func (s *listService) GetItem(ctx context.Context, actor domain.Actor, listID, itemID uuid.UUID) (*ItemView, error) {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}

	rows, err := s.items.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	for _, row := range rows {
		if row.Item.ID != itemID {
			continue
		}
		views, err := s.viewItems(ctx, list, []repository.ListItemRow{row})
		if err != nil {
			return nil, err
		}
		return &views[0], nil
	}

	return nil, fmt.Errorf("%w: list item %s", ErrNotFound, itemID)
}

// ListItems retrieves a list's priced items, optionally filtered by a
// case-insensitive article name substring and sorted by the given column.
func (s *listService) ListItems(ctx context.Context, actor domain.Actor, listID uuid.UUID, nameFilter string, sortBy ItemSort) ([]ItemView, error) {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}

	rows, err := s.items.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	if filter := strings.ToLower(cleanText(nameFilter)); filter != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.ArticleName), filter) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	views, err := s.viewItems(ctx, list, rows)
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case ItemSortName:
		sort.SliceStable(views, func(i, j int) bool {
			return strings.ToLower(views[i].ArticleName) < strings.ToLower(views[j].ArticleName)
		})
	case ItemSortAmount:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Item.Amount.LessThan(views[j].Item.Amount)
		})
	case ItemSortCost:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].LineCost.LessThan(views[j].LineCost)
		})
	default:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Item.UpdatedAt.After(views[j].Item.UpdatedAt)
		})
	}

	return views, nil
}

// Cost computes the list's bucketed cost breakdown as of its updated_at.
// Pure read: repeated calls without intervening mutation yield identical
// results and leave no trace.
func (s *listService) Cost(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error) {
	list, err := s.getOwnedList(ctx, actor, listID)
	if err != nil {
		return nil, err
	}

	return computeCost(ctx, s.items, s.prices, list)
}

// computeCost computes the breakdown for an already-loaded list. Shared
// with the cost cache, which refreshes from the same computation.
func computeCost(ctx context.Context, items repository.ListItemRepository, prices repository.PriceRepository, list *domain.ShoppingList) (domain.CostBreakdown, error) {
	rows, err := items.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	articleIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		articleIDs = append(articleIDs, row.Item.ArticleID)
	}

	histories, err := prices.ListByArticles(ctx, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load price histories: %w", err)
	}

	costed := make([]ledger.CostedItem, 0, len(rows))
	for _, row := range rows {
		costed = append(costed, ledger.CostedItem{
			Item:     row.Item,
			Category: row.CategoryName,
			Prices:   histories[row.Item.ArticleID],
		})
	}

	breakdown, err := ledger.Breakdown(costed, list.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cost breakdown: %w", err)
	}

	return breakdown, nil
}
