package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shoplist/internal/domain"

	"github.com/google/uuid"
)

// CostRepository defines the interface for materialized shopping list cost
// rows. Rows are only ever replaced wholesale per list: a partial snapshot
// would mix buckets from different list revisions.
type CostRepository interface {
	ListByList(ctx context.Context, listID uuid.UUID) ([]domain.ShoppingListCost, error)
	Replace(ctx context.Context, listID uuid.UUID, rows []domain.ShoppingListCost) error
}

type costRepository struct {
	db *sql.DB
}

// NewCostRepository creates a new instance of CostRepository
func NewCostRepository(db *sql.DB) CostRepository {
	return &costRepository{db: db}
}

// ListByList retrieves all cached cost rows of a list
func (r *costRepository) ListByList(ctx context.Context, listID uuid.UUID) ([]domain.ShoppingListCost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, list_id, category_id, bucket, cost, created_at
		FROM shopping_list_costs
		WHERE list_id = $1
		ORDER BY bucket ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost rows: %w", err)
	}
	defer rows.Close()

	costs := []domain.ShoppingListCost{}
	for rows.Next() {
		cost := domain.ShoppingListCost{}
		err := rows.Scan(
			&cost.ID,
			&cost.ListID,
			&cost.CategoryID,
			&cost.Bucket,
			&cost.Cost,
			&cost.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost row: %w", err)
		}
		costs = append(costs, cost)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cost rows: %w", err)
	}

	return costs, nil
}

// Replace discards the list's existing cost rows and inserts the new
// snapshot in one transaction.
func (r *costRepository) Replace(ctx context.Context, listID uuid.UUID, costs []domain.ShoppingListCost) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_list_costs WHERE list_id = $1`, listID); err != nil {
		return fmt.Errorf("failed to clear cost rows: %w", err)
	}

	for _, cost := range costs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shopping_list_costs (id, list_id, category_id, bucket, cost, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			cost.ID,
			cost.ListID,
			cost.CategoryID,
			cost.Bucket,
			cost.Cost,
			cost.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cost row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cost snapshot: %w", err)
	}

	return nil
}
