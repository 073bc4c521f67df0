package service

import (
	"context"
	"errors"
	"fmt"

	"shoplist/internal/domain"
	"shoplist/internal/repository"

	"github.com/google/uuid"
)

// CostCacheService materializes shopping list cost breakdowns. A cached
// snapshot is valid only while every one of its rows carries the list's
// current updated_at; any list or item mutation advances that timestamp
// and silently invalidates the snapshot.
type CostCacheService interface {
	// Read serves the cached breakdown when fresh and recomputes it otherwise
	Read(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error)

	// IsUpToDate reports whether a fresh snapshot exists for the list
	IsUpToDate(ctx context.Context, actor domain.Actor, listID uuid.UUID) (bool, error)

	// Refresh recomputes the breakdown and replaces the snapshot wholesale
	Refresh(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error)
}

type costCacheService struct {
	lists      repository.ListRepository
	items      repository.ListItemRepository
	prices     repository.PriceRepository
	categories repository.ReferenceRepository
	costs      repository.CostRepository
}

// NewCostCacheService creates a new instance of CostCacheService
func NewCostCacheService(
	lists repository.ListRepository,
	items repository.ListItemRepository,
	prices repository.PriceRepository,
	categories repository.ReferenceRepository,
	costs repository.CostRepository,
) CostCacheService {
	return &costCacheService{
		lists:      lists,
		items:      items,
		prices:     prices,
		categories: categories,
		costs:      costs,
	}
}

// fresh reports whether the rows form a valid snapshot of the list: at
// least one row, and every row stamped with the list's updated_at.
func fresh(list *domain.ShoppingList, rows []domain.ShoppingListCost) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if !row.CreatedAt.Equal(list.UpdatedAt) {
			return false
		}
	}
	return true
}

func breakdownOf(rows []domain.ShoppingListCost) domain.CostBreakdown {
	breakdown := domain.CostBreakdown{}
	for _, row := range rows {
		breakdown[row.Bucket] = row.Cost
	}
	return breakdown
}

// Read serves the cached breakdown, transparently refreshing a stale or
// missing snapshot first.
func (s *costCacheService) Read(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error) {
	list, err := loadOwnedList(ctx, s.lists, actor, listID)
	if err != nil {
		return nil, err
	}

	rows, err := s.costs.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cost snapshot: %w", err)
	}
	if fresh(list, rows) {
		return breakdownOf(rows), nil
	}

	return s.refresh(ctx, list)
}

// IsUpToDate reports whether the list's snapshot matches its updated_at
func (s *costCacheService) IsUpToDate(ctx context.Context, actor domain.Actor, listID uuid.UUID) (bool, error) {
	list, err := loadOwnedList(ctx, s.lists, actor, listID)
	if err != nil {
		return false, err
	}

	rows, err := s.costs.ListByList(ctx, list.ID)
	if err != nil {
		return false, fmt.Errorf("failed to read cost snapshot: %w", err)
	}

	return fresh(list, rows), nil
}

// Refresh recomputes and stores the list's snapshot regardless of freshness
func (s *costCacheService) Refresh(ctx context.Context, actor domain.Actor, listID uuid.UUID) (domain.CostBreakdown, error) {
	list, err := loadOwnedList(ctx, s.lists, actor, listID)
	if err != nil {
		return nil, err
	}

	return s.refresh(ctx, list)
}

func (s *costCacheService) refresh(ctx context.Context, list *domain.ShoppingList) (domain.CostBreakdown, error) {
	breakdown, err := computeCost(ctx, s.items, s.prices, list)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ShoppingListCost, 0, len(breakdown))
	for bucket, cost := range breakdown {
		row := domain.ShoppingListCost{
			ID:        uuid.New(),
			ListID:    list.ID,
			Bucket:    bucket,
			Cost:      cost,
			CreatedAt: list.UpdatedAt,
		}

		// The fixed buckets carry no category; named buckets keep a
		// reference to the category they were computed from.
		if bucket != domain.BucketUncategorized && bucket != domain.BucketTotal {
			category, err := s.categories.FindByName(ctx, list.OwnerID, bucket)
			if err != nil && !errors.Is(err, repository.ErrReferenceNotFound) {
				return nil, fmt.Errorf("failed to resolve bucket category: %w", err)
			}
			if category != nil {
				row.CategoryID = &category.ID
			}
		}

		rows = append(rows, row)
	}

	if err := s.costs.Replace(ctx, list.ID, rows); err != nil {
		return nil, fmt.Errorf("failed to store cost snapshot: %w", err)
	}

	return breakdown, nil
}
