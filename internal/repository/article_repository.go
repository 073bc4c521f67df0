package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shoplist/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrArticleNameTaken = errors.New("article with this name already exists for this store")
)

// ArticleRepository defines the interface for article data access. Create
// and Update take an optional price record so that article row and ledger
// row land in one transaction.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article, initialPrice *domain.Price) error
	Update(ctx context.Context, article *domain.Article, newPrice *domain.Price) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, nameFilter string) ([]*domain.Article, error)
	HasListItems(ctx context.Context, id uuid.UUID) (bool, error)
}

type articleRepository struct {
	db *sql.DB
}

// NewArticleRepository creates a new instance of ArticleRepository
func NewArticleRepository(db *sql.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts an article together with its initial price record in one
// transaction: either both persist or neither does.
func (r *articleRepository) Create(ctx context.Context, article *domain.Article, initialPrice *domain.Price) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, name, detail, store_id, category_id, brand_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		article.ID,
		article.Name,
		article.Detail,
		article.StoreID,
		article.CategoryID,
		article.BrandID,
		article.OwnerID,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrArticleNameTaken
		}
		return fmt.Errorf("failed to create article: %w", err)
	}

	if initialPrice != nil {
		if err := insertPrice(ctx, tx, initialPrice); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit article creation: %w", err)
	}

	return nil
}

// Update rewrites the article row and, when a new price is given, appends a
// ledger record in the same transaction. Existing price records are never
// touched.
func (r *articleRepository) Update(ctx context.Context, article *domain.Article, newPrice *domain.Price) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE articles
		SET name = $2, detail = $3, store_id = $4, category_id = $5, brand_id = $6, updated_at = $7
		WHERE id = $1
	`,
		article.ID,
		article.Name,
		article.Detail,
		article.StoreID,
		article.CategoryID,
		article.BrandID,
		article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrArticleNameTaken
		}
		return fmt.Errorf("failed to update article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrArticleNotFound
	}

	if newPrice != nil {
		if err := insertPrice(ctx, tx, newPrice); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit article update: %w", err)
	}

	return nil
}

// Delete removes an article; its price records cascade at the schema level
func (r *articleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrArticleNotFound
	}

	return nil
}

// FindByID retrieves an article by ID
func (r *articleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	article := &domain.Article{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, detail, store_id, category_id, brand_id, owner_id, created_at, updated_at
		FROM articles
		WHERE id = $1
	`, id).Scan(
		&article.ID,
		&article.Name,
		&article.Detail,
		&article.StoreID,
		&article.CategoryID,
		&article.BrandID,
		&article.OwnerID,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}

	return article, nil
}

// ListByOwner retrieves the owner's articles, optionally filtered by a
// case-insensitive name substring, newest first.
func (r *articleRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, nameFilter string) ([]*domain.Article, error) {
	query := `
		SELECT id, name, detail, store_id, category_id, brand_id, owner_id, created_at, updated_at
		FROM articles
		WHERE owner_id = $1
	`
	args := []interface{}{ownerID}

	if nameFilter != "" {
		query += ` AND name ILIKE $2`
		args = append(args, "%"+nameFilter+"%")
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := []*domain.Article{}
	for rows.Next() {
		article := &domain.Article{}
		err := rows.Scan(
			&article.ID,
			&article.Name,
			&article.Detail,
			&article.StoreID,
			&article.CategoryID,
			&article.BrandID,
			&article.OwnerID,
			&article.CreatedAt,
			&article.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}

// HasListItems reports whether any shopping-list item references the article
func (r *articleRepository) HasListItems(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM shopping_list_items WHERE article_id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article references: %w", err)
	}

	return exists, nil
}
