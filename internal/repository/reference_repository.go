package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shoplist/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrReferenceNotFound  = errors.New("reference entity not found")
	ErrReferenceNameTaken = errors.New("reference entity with this name already exists")
	ErrReferenceInUse     = errors.New("reference entity is still associated with articles")
)

// ReferenceRepository defines the interface for store, category and brand
// data access. The three tables share one shape, so one implementation is
// bound to each table by its constructor.
type ReferenceRepository interface {
	Create(ctx context.Context, ref *domain.Reference) error
	Rename(ctx context.Context, ref *domain.Reference) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Reference, error)
	FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Reference, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Reference, error)
	DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error)
}

type referenceRepository struct {
	db            *sql.DB
	table         string
	articleColumn string
}

// NewStoreRepository creates a ReferenceRepository over the stores table
func NewStoreRepository(db *sql.DB) ReferenceRepository {
	return &referenceRepository{db: db, table: "stores", articleColumn: "store_id"}
}

// NewCategoryRepository creates a ReferenceRepository over the categories table
func NewCategoryRepository(db *sql.DB) ReferenceRepository {
	return &referenceRepository{db: db, table: "categories", articleColumn: "category_id"}
}

// NewBrandRepository creates a ReferenceRepository over the brands table
func NewBrandRepository(db *sql.DB) ReferenceRepository {
	return &referenceRepository{db: db, table: "brands", articleColumn: "brand_id"}
}

// Create inserts a new reference entity
func (r *referenceRepository) Create(ctx context.Context, ref *domain.Reference) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.table)

	_, err := r.db.ExecContext(ctx, query, ref.ID, ref.Name, ref.OwnerID, ref.CreatedAt, ref.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrReferenceNameTaken
		}
		return fmt.Errorf("failed to create %s entry: %w", r.table, err)
	}

	return nil
}

// Rename updates the entity's name
func (r *referenceRepository) Rename(ctx context.Context, ref *domain.Reference) error {
	query := fmt.Sprintf(`
		UPDATE %s SET name = $2, updated_at = $3 WHERE id = $1
	`, r.table)

	result, err := r.db.ExecContext(ctx, query, ref.ID, ref.Name, ref.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrReferenceNameTaken
		}
		return fmt.Errorf("failed to rename %s entry: %w", r.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReferenceNotFound
	}

	return nil
}

// Delete removes the entity, refusing while articles still reference it
func (r *referenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var inUse bool
	checkQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM articles WHERE %s = $1)`, r.articleColumn)
	if err := r.db.QueryRowContext(ctx, checkQuery, id).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to check %s references: %w", r.table, err)
	}
	if inUse {
		return ErrReferenceInUse
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s entry: %w", r.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReferenceNotFound
	}

	return nil
}

// FindByID retrieves a reference entity by ID
func (r *referenceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reference, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, created_at, updated_at FROM %s WHERE id = $1
	`, r.table)

	ref := &domain.Reference{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ref.ID, &ref.Name, &ref.OwnerID, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReferenceNotFound
		}
		return nil, fmt.Errorf("failed to find %s entry by ID: %w", r.table, err)
	}

	return ref, nil
}

// FindByName retrieves the owner's entity matching the name case-insensitively
func (r *referenceRepository) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Reference, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, created_at, updated_at
		FROM %s
		WHERE owner_id = $1 AND LOWER(name) = LOWER($2)
	`, r.table)

	ref := &domain.Reference{}
	err := r.db.QueryRowContext(ctx, query, ownerID, name).Scan(&ref.ID, &ref.Name, &ref.OwnerID, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReferenceNotFound
		}
		return nil, fmt.Errorf("failed to find %s entry by name: %w", r.table, err)
	}

	return ref, nil
}

// ListByOwner retrieves the owner's entities sorted by name
func (r *referenceRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Reference, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, created_at, updated_at
		FROM %s
		WHERE owner_id = $1
		ORDER BY LOWER(name) ASC
	`, r.table)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", r.table, err)
	}
	defer rows.Close()

	refs := []*domain.Reference{}
	for rows.Next() {
		ref := &domain.Reference{}
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.OwnerID, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", r.table, err)
		}
		refs = append(refs, ref)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s entries: %w", r.table, err)
	}

	return refs, nil
}

// DeleteIfOrphaned removes the entity iff no article references it anymore.
// Runs as one conditional statement so the check and the delete cannot race.
// Returns whether a row was removed.
func (r *referenceRepository) DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM articles WHERE %s = $1)
	`, r.table, r.articleColumn)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to garbage collect %s entry: %w", r.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
