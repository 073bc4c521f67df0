package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shoplist/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrListNotFound = errors.New("shopping list not found")
)

// ListRepository defines the interface for shopping list data access
type ListRepository interface {
	Create(ctx context.Context, list *domain.ShoppingList) error
	Update(ctx context.Context, list *domain.ShoppingList) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingList, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]*domain.ShoppingList, error)
}

type listRepository struct {
	db *sql.DB
}

// NewListRepository creates a new instance of ListRepository
func NewListRepository(db *sql.DB) ListRepository {
	return &listRepository{db: db}
}

// Create inserts a new shopping list
func (r *listRepository) Create(ctx context.Context, list *domain.ShoppingList) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shopping_lists (id, title, finalized, category_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		list.ID,
		list.Title,
		list.Finalized,
		list.CategoryID,
		list.OwnerID,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shopping list: %w", err)
	}

	return nil
}

// Update rewrites title, category, finalized flag and updated_at
func (r *listRepository) Update(ctx context.Context, list *domain.ShoppingList) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE shopping_lists
		SET title = $2, finalized = $3, category_id = $4, updated_at = $5
		WHERE id = $1
	`,
		list.ID,
		list.Title,
		list.Finalized,
		list.CategoryID,
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update shopping list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrListNotFound
	}

	return nil
}

// Delete removes a shopping list; its items and cost rows cascade at the
// schema level.
func (r *listRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrListNotFound
	}

	return nil
}

// FindByID retrieves a shopping list by ID
func (r *listRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingList, error) {
	list := &domain.ShoppingList{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, finalized, category_id, owner_id, created_at, updated_at
		FROM shopping_lists
		WHERE id = $1
	`, id).Scan(
		&list.ID,
		&list.Title,
		&list.Finalized,
		&list.CategoryID,
		&list.OwnerID,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("failed to find shopping list by ID: %w", err)
	}

	return list, nil
}

// ListByOwner retrieves the owner's lists, optionally restricted to those
// last updated within [from, to], newest first.
func (r *listRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]*domain.ShoppingList, error) {
	query := `
		SELECT id, title, finalized, category_id, owner_id, created_at, updated_at
		FROM shopping_lists
		WHERE owner_id = $1
	`
	args := []interface{}{ownerID}
	argIndex := 2

	if from != nil {
		query += fmt.Sprintf(" AND updated_at >= $%d", argIndex)
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		query += fmt.Sprintf(" AND updated_at <= $%d", argIndex)
		args = append(args, *to)
		argIndex++
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	lists := []*domain.ShoppingList{}
	for rows.Next() {
		list := &domain.ShoppingList{}
		err := rows.Scan(
			&list.ID,
			&list.Title,
			&list.Finalized,
			&list.CategoryID,
			&list.OwnerID,
			&list.CreatedAt,
			&list.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		lists = append(lists, list)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shopping lists: %w", err)
	}

	return lists, nil
}
