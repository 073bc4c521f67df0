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
	ErrListItemNotFound = errors.New("shopping list item not found")
	ErrDuplicateArticle = errors.New("shopping list already contains this article")
)

// ListItemRow joins an item with the article data needed for display,
// filtering and cost bucketing.
type ListItemRow struct {
	Item         domain.ShoppingListItem
	ArticleName  string
	CategoryName *string
}

// ListItemRepository defines the interface for shopping list item data
// access. Every mutation also advances the parent list's updated_at, in the
// same transaction, so the list's logical clock never lags its items.
type ListItemRepository interface {
	Create(ctx context.Context, item *domain.ShoppingListItem) error
	Update(ctx context.Context, item *domain.ShoppingListItem) error
	Delete(ctx context.Context, id, listID uuid.UUID, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingListItem, error)
	ListByList(ctx context.Context, listID uuid.UUID) ([]ListItemRow, error)
	HasArticle(ctx context.Context, listID, articleID uuid.UUID) (bool, error)
}

type listItemRepository struct {
	db *sql.DB
}

// NewListItemRepository creates a new instance of ListItemRepository
func NewListItemRepository(db *sql.DB) ListItemRepository {
	return &listItemRepository{db: db}
}

// touchList advances a list's updated_at inside an item mutation transaction
func touchList(ctx context.Context, tx *sql.Tx, listID uuid.UUID, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET updated_at = $2 WHERE id = $1`, listID, at)
	if err != nil {
		return fmt.Errorf("failed to touch shopping list: %w", err)
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

// Create inserts an item and bumps the parent list in one transaction
func (r *listItemRepository) Create(ctx context.Context, item *domain.ShoppingListItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shopping_list_items (id, list_id, article_id, amount, offer_price, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		item.ID,
		item.ListID,
		item.ArticleID,
		item.Amount,
		item.OfferPrice,
		item.OwnerID,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateArticle
		}
		return fmt.Errorf("failed to create list item: %w", err)
	}

	if err := touchList(ctx, tx, item.ListID, item.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list item creation: %w", err)
	}

	return nil
}

// Update rewrites an item and bumps the parent list in one transaction
func (r *listItemRepository) Update(ctx context.Context, item *domain.ShoppingListItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE shopping_list_items
		SET article_id = $2, amount = $3, offer_price = $4, updated_at = $5
		WHERE id = $1
	`,
		item.ID,
		item.ArticleID,
		item.Amount,
		item.OfferPrice,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateArticle
		}
		return fmt.Errorf("failed to update list item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrListItemNotFound
	}

	if err := touchList(ctx, tx, item.ListID, item.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list item update: %w", err)
	}

	return nil
}

// Delete removes an item and bumps the parent list in one transaction
func (r *listItemRepository) Delete(ctx context.Context, id, listID uuid.UUID, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE id = $1 AND list_id = $2`, id, listID)
	if err != nil {
		return fmt.Errorf("failed to delete list item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrListItemNotFound
	}

	if err := touchList(ctx, tx, listID, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list item deletion: %w", err)
	}

	return nil
}

// FindByID retrieves a list item by ID
func (r *listItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingListItem, error) {
	item := &domain.ShoppingListItem{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, list_id, article_id, amount, offer_price, owner_id, created_at, updated_at
		FROM shopping_list_items
		WHERE id = $1
	`, id).Scan(
		&item.ID,
		&item.ListID,
		&item.ArticleID,
		&item.Amount,
		&item.OfferPrice,
		&item.OwnerID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListItemNotFound
		}
		return nil, fmt.Errorf("failed to find list item by ID: %w", err)
	}

	return item, nil
}

// ListByList retrieves a list's items joined with article name and category
// name, in insertion order.
func (r *listItemRepository) ListByList(ctx context.Context, listID uuid.UUID) ([]ListItemRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.list_id, i.article_id, i.amount, i.offer_price, i.owner_id, i.created_at, i.updated_at,
		       a.name, c.name
		FROM shopping_list_items i
		JOIN articles a ON a.id = i.article_id
		LEFT JOIN categories c ON c.id = a.category_id
		WHERE i.list_id = $1
		ORDER BY i.created_at ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []ListItemRow{}
	for rows.Next() {
		row := ListItemRow{}
		err := rows.Scan(
			&row.Item.ID,
			&row.Item.ListID,
			&row.Item.ArticleID,
			&row.Item.Amount,
			&row.Item.OfferPrice,
			&row.Item.OwnerID,
			&row.Item.CreatedAt,
			&row.Item.UpdatedAt,
			&row.ArticleName,
			&row.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		items = append(items, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating list items: %w", err)
	}

	return items, nil
}

// HasArticle reports whether the list already contains an item for the article
func (r *listItemRepository) HasArticle(ctx context.Context, listID, articleID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM shopping_list_items WHERE list_id = $1 AND article_id = $2)
	`, listID, articleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check list for article: %w", err)
	}

	return exists, nil
}
