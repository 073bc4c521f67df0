package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shoplist/internal/domain"

	"github.com/google/uuid"
)

// PriceRepository defines the interface for price ledger data access. The
// ledger is append-only: there are no update or single-delete operations,
// records disappear only through cascading article deletion.
type PriceRepository interface {
	Create(ctx context.Context, price *domain.Price) error
	ListByArticle(ctx context.Context, articleID uuid.UUID) ([]domain.Price, error)
	ListByArticles(ctx context.Context, articleIDs []uuid.UUID) (map[uuid.UUID][]domain.Price, error)
}

type priceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db *sql.DB) PriceRepository {
	return &priceRepository{db: db}
}

// execer covers *sql.DB and *sql.Tx for writes shared with other repositories
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertPrice appends one record to an article's ledger. Shared with the
// article repository, which appends inside its own transactions.
func insertPrice(ctx context.Context, db execer, price *domain.Price) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO prices (id, article_id, price, currency, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		price.ID,
		price.ArticleID,
		price.Price,
		price.Currency,
		price.OwnerID,
		price.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create price record: %w", err)
	}

	return nil
}

// Create appends a new price record; prior records are never modified
func (r *priceRepository) Create(ctx context.Context, price *domain.Price) error {
	return insertPrice(ctx, r.db, price)
}

// ListByArticle retrieves an article's full price history, oldest first
func (r *priceRepository) ListByArticle(ctx context.Context, articleID uuid.UUID) ([]domain.Price, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, article_id, price, currency, owner_id, created_at
		FROM prices
		WHERE article_id = $1
		ORDER BY created_at ASC
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// ListByArticles retrieves the price histories of several articles at once,
// keyed by article ID, each history oldest first.
func (r *priceRepository) ListByArticles(ctx context.Context, articleIDs []uuid.UUID) (map[uuid.UUID][]domain.Price, error) {
	histories := make(map[uuid.UUID][]domain.Price, len(articleIDs))
	if len(articleIDs) == 0 {
		return histories, nil
	}

	ids := make([]string, len(articleIDs))
	for i, id := range articleIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, article_id, price, currency, owner_id, created_at
		FROM prices
		WHERE article_id = ANY($1::uuid[])
		ORDER BY created_at ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	prices, err := scanPrices(rows)
	if err != nil {
		return nil, err
	}

	for _, price := range prices {
		histories[price.ArticleID] = append(histories[price.ArticleID], price)
	}

	return histories, nil
}

func scanPrices(rows *sql.Rows) ([]domain.Price, error) {
	prices := []domain.Price{}
	for rows.Next() {
		price := domain.Price{}
		err := rows.Scan(
			&price.ID,
			&price.ArticleID,
			&price.Price,
			&price.Currency,
			&price.OwnerID,
			&price.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, price)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}
