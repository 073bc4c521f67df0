package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoplist/internal/domain"
	"shoplist/internal/ledger"
	"shoplist/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateArticleInput carries the fields for a new catalog entry. Store,
// category and brand are given by name; missing entities are created on the
// fly for the owner.
type CreateArticleInput struct {
	Name     string
	Detail   string
	Store    *string
	Category *string
	Brand    *string
	Price    decimal.Decimal
	Currency string
}

// UpdateArticleInput carries a partial article update. Nil fields are left
// untouched; an empty store/category/brand name clears the association. A
// changed price appends a ledger record, an unchanged one is ignored.
type UpdateArticleInput struct {
	ID       uuid.UUID
	Name     *string
	Detail   *string
	Store    *string
	Category *string
	Brand    *string
	Price    *decimal.Decimal
	Currency *string
}

// CatalogService defines the interface for article catalog business logic
type CatalogService interface {
	CreateArticle(ctx context.Context, actor domain.Actor, input CreateArticleInput) (*domain.Article, error)
	UpdateArticle(ctx context.Context, actor domain.Actor, input UpdateArticleInput) (*domain.Article, error)
	DeleteArticle(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	GetArticle(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Article, error)
	FindArticles(ctx context.Context, actor domain.Actor, nameFilter string) ([]*domain.Article, error)
	ArticlePrice(ctx context.Context, actor domain.Actor, id uuid.UUID, at *time.Time) (*domain.Price, error)
	ArticlePrices(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]domain.Price, error)
}

type catalogService struct {
	articles   repository.ArticleRepository
	prices     repository.PriceRepository
	stores     repository.ReferenceRepository
	categories repository.ReferenceRepository
	brands     repository.ReferenceRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	articles repository.ArticleRepository,
	prices repository.PriceRepository,
	stores repository.ReferenceRepository,
	categories repository.ReferenceRepository,
	brands repository.ReferenceRepository,
) CatalogService {
	return &catalogService{
		articles:   articles,
		prices:     prices,
		stores:     stores,
		categories: categories,
		brands:     brands,
	}
}

// getOwnedArticle loads an article, hiding other owners' entities from
// non-admin actors as not-found rather than forbidden.
func (s *catalogService) getOwnedArticle(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Article, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			return nil, fmt.Errorf("%w: article %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if !actor.IsAdmin() && article.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: article %s", ErrNotFound, id)
	}

	return article, nil
}

// resolveReference maps a store/category/brand name to the owner's entity,
// creating it when the owner has none with that name yet.
func (s *catalogService) resolveReference(ctx context.Context, repo repository.ReferenceRepository, ownerID uuid.UUID, name string, now time.Time) (*uuid.UUID, error) {
	cleaned, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}

	ref, err := repo.FindByName(ctx, ownerID, cleaned)
	if err == nil {
		return &ref.ID, nil
	}
	if !errors.Is(err, repository.ErrReferenceNotFound) {
		return nil, fmt.Errorf("failed to resolve reference: %w", err)
	}

	ref = &domain.Reference{
		ID:        uuid.New(),
		Name:      cleaned,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to create reference: %w", err)
	}

	return &ref.ID, nil
}

// collectOrphan garbage collects a previously associated reference entity
// once the association moved elsewhere and no other article holds on to it.
// Runs as an explicit post-condition after the article change is committed.
func (s *catalogService) collectOrphan(ctx context.Context, repo repository.ReferenceRepository, prev, next *uuid.UUID) error {
	if prev == nil {
		return nil
	}
	if next != nil && *next == *prev {
		return nil
	}

	if _, err := repo.DeleteIfOrphaned(ctx, *prev); err != nil {
		return fmt.Errorf("failed to collect orphaned reference: %w", err)
	}

	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return nil
}

// CreateArticle inserts a catalog entry together with its initial price
// record; article and ledger row persist atomically or not at all.
func (s *catalogService) CreateArticle(ctx context.Context, actor domain.Actor, input CreateArticleInput) (*domain.Article, error) {
	now := time.Now().UTC()

	name, err := cleanName("article name", input.Name)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	currency := cleanText(input.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	article := &domain.Article{
		ID:        uuid.New(),
		Name:      name,
		Detail:    cleanText(input.Detail),
		OwnerID:   actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.Store != nil {
		if article.StoreID, err = s.resolveReference(ctx, s.stores, actor.UserID, *input.Store, now); err != nil {
			return nil, err
		}
	}
	if input.Category != nil {
		if article.CategoryID, err = s.resolveReference(ctx, s.categories, actor.UserID, *input.Category, now); err != nil {
			return nil, err
		}
	}
	if input.Brand != nil {
		if article.BrandID, err = s.resolveReference(ctx, s.brands, actor.UserID, *input.Brand, now); err != nil {
			return nil, err
		}
	}

	initialPrice := &domain.Price{
		ID:        uuid.New(),
		ArticleID: article.ID,
		Price:     input.Price,
		Currency:  currency,
		OwnerID:   actor.UserID,
		CreatedAt: now,
	}

	if err := s.articles.Create(ctx, article, initialPrice); err != nil {
		if errors.Is(err, repository.ErrArticleNameTaken) {
			return nil, fmt.Errorf("%w: article %q already exists", ErrConflict, article.Name)
		}
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return article, nil
}

// UpdateArticle applies a partial update. A price differing from the
// currently resolved one appends a new ledger record; associations moving
// away from a now-unreferenced store/category/brand trigger its removal.
func (s *catalogService) UpdateArticle(ctx context.Context, actor domain.Actor, input UpdateArticleInput) (*domain.Article, error) {
	article, err := s.getOwnedArticle(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prevStore, prevCategory, prevBrand := article.StoreID, article.CategoryID, article.BrandID

	if input.Name != nil {
		if article.Name, err = cleanName("article name", *input.Name); err != nil {
			return nil, err
		}
	}
	if input.Detail != nil {
		article.Detail = cleanText(*input.Detail)
	}
	if input.Store != nil {
		article.StoreID = nil
		if *input.Store != "" {
			if article.StoreID, err = s.resolveReference(ctx, s.stores, article.OwnerID, *input.Store, now); err != nil {
				return nil, err
			}
		}
	}
	if input.Category != nil {
		article.CategoryID = nil
		if *input.Category != "" {
			if article.CategoryID, err = s.resolveReference(ctx, s.categories, article.OwnerID, *input.Category, now); err != nil {
				return nil, err
			}
		}
	}
	if input.Brand != nil {
		article.BrandID = nil
		if *input.Brand != "" {
			if article.BrandID, err = s.resolveReference(ctx, s.brands, article.OwnerID, *input.Brand, now); err != nil {
				return nil, err
			}
		}
	}

	var newPrice *domain.Price
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}

		history, err := s.prices.ListByArticle(ctx, article.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load price history: %w", err)
		}
		current, err := ledger.Resolve(history, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve current price: %w", err)
		}

		if !current.Price.Equal(*input.Price) {
			currency := current.Currency
			if input.Currency != nil && cleanText(*input.Currency) != "" {
				currency = cleanText(*input.Currency)
			}
			newPrice = &domain.Price{
				ID:        uuid.New(),
				ArticleID: article.ID,
				Price:     *input.Price,
				Currency:  currency,
				OwnerID:   article.OwnerID,
				CreatedAt: now,
			}
		}
	}

	article.UpdatedAt = now
	if err := s.articles.Update(ctx, article, newPrice); err != nil {
		if errors.Is(err, repository.ErrArticleNameTaken) {
			return nil, fmt.Errorf("%w: article %q already exists", ErrConflict, article.Name)
		}
		if errors.Is(err, repository.ErrArticleNotFound) {
			return nil, fmt.Errorf("%w: article %s", ErrNotFound, article.ID)
		}
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	if err := s.collectOrphan(ctx, s.stores, prevStore, article.StoreID); err != nil {
		return nil, err
	}
	if err := s.collectOrphan(ctx, s.categories, prevCategory, article.CategoryID); err != nil {
		return nil, err
	}
	if err := s.collectOrphan(ctx, s.brands, prevBrand, article.BrandID); err != nil {
		return nil, err
	}

	return article, nil
}

// DeleteArticle removes an article, refusing while shopping lists still
// reference it. Price records cascade; associated reference entities left
// without articles are garbage collected afterwards.
func (s *catalogService) DeleteArticle(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	article, err := s.getOwnedArticle(ctx, actor, id)
	if err != nil {
		return err
	}

	referenced, err := s.articles.HasListItems(ctx, article.ID)
	if err != nil {
		return fmt.Errorf("failed to check article references: %w", err)
	}
	if referenced {
		return fmt.Errorf("%w: shopping lists still contain article %q", ErrConflict, article.Name)
	}

	if err := s.articles.Delete(ctx, article.ID); err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			return fmt.Errorf("%w: article %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete article: %w", err)
	}

	if err := s.collectOrphan(ctx, s.stores, article.StoreID, nil); err != nil {
		return err
	}
	if err := s.collectOrphan(ctx, s.categories, article.CategoryID, nil); err != nil {
		return err
	}
	if err := s.collectOrphan(ctx, s.brands, article.BrandID, nil); err != nil {
		return err
	}

	return nil
}

// GetArticle retrieves one article visible to the actor
func (s *catalogService) GetArticle(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Article, error) {
	return s.getOwnedArticle(ctx, actor, id)
}

// FindArticles retrieves the actor's articles, optionally filtered by a
// case-insensitive name substring.
func (s *catalogService) FindArticles(ctx context.Context, actor domain.Actor, nameFilter string) ([]*domain.Article, error) {
	articles, err := s.articles.ListByOwner(ctx, actor.UserID, cleanText(nameFilter))
	if err != nil {
		return nil, fmt.Errorf("failed to find articles: %w", err)
	}
	return articles, nil
}

// ArticlePrice resolves the article's price as of the given instant via the
// ledger; a nil instant resolves the latest record.
func (s *catalogService) ArticlePrice(ctx context.Context, actor domain.Actor, id uuid.UUID, at *time.Time) (*domain.Price, error) {
	article, err := s.getOwnedArticle(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	history, err := s.prices.ListByArticle(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	price, err := ledger.Resolve(history, at)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPrices) {
			return nil, fmt.Errorf("%w: article %s has no price records", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to resolve price: %w", err)
	}

	return price, nil
}

// ArticlePrices retrieves the article's full price history, oldest first
func (s *catalogService) ArticlePrices(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]domain.Price, error) {
	article, err := s.getOwnedArticle(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	history, err := s.prices.ListByArticle(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	return history, nil
}
