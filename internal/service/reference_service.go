package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoplist/internal/domain"
	"shoplist/internal/repository"

	"github.com/google/uuid"
)

// ReferenceService defines the explicit lifecycle of stores, categories and
// brands, independent of the implicit by-name creation and garbage
// collection driven by article associations.
type ReferenceService interface {
	Create(ctx context.Context, actor domain.Actor, name string) (*domain.Reference, error)
	Rename(ctx context.Context, actor domain.Actor, id uuid.UUID, name string) (*domain.Reference, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reference, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.Reference, error)
}

type referenceService struct {
	repo repository.ReferenceRepository
	kind string
}

// NewReferenceService creates a ReferenceService over the given repository;
// kind names the entity in error messages ("store", "category", "brand").
func NewReferenceService(repo repository.ReferenceRepository, kind string) ReferenceService {
	return &referenceService{repo: repo, kind: kind}
}

func (s *referenceService) getOwned(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reference, error) {
	ref, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, s.kind, id)
		}
		return nil, fmt.Errorf("failed to load %s: %w", s.kind, err)
	}

	if !actor.IsAdmin() && ref.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, s.kind, id)
	}

	return ref, nil
}

// Create inserts a new entity for the actor
func (s *referenceService) Create(ctx context.Context, actor domain.Actor, name string) (*domain.Reference, error) {
	cleaned, err := cleanName(s.kind+" name", name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ref := &domain.Reference{
		ID:        uuid.New(),
		Name:      cleaned,
		OwnerID:   actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrReferenceNameTaken) {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, s.kind, cleaned)
		}
		return nil, fmt.Errorf("failed to create %s: %w", s.kind, err)
	}

	return ref, nil
}

// Rename changes the entity's name
func (s *referenceService) Rename(ctx context.Context, actor domain.Actor, id uuid.UUID, name string) (*domain.Reference, error) {
	ref, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if ref.Name, err = cleanName(s.kind+" name", name); err != nil {
		return nil, err
	}
	ref.UpdatedAt = time.Now().UTC()

	if err := s.repo.Rename(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrReferenceNameTaken) {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, s.kind, ref.Name)
		}
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, s.kind, id)
		}
		return nil, fmt.Errorf("failed to rename %s: %w", s.kind, err)
	}

	return ref, nil
}

// Delete removes the entity, refusing while articles still use it
func (s *referenceService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	ref, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, ref.ID); err != nil {
		if errors.Is(err, repository.ErrReferenceInUse) {
			return fmt.Errorf("%w: articles still reference %s %q", ErrConflict, s.kind, ref.Name)
		}
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return fmt.Errorf("%w: %s %s", ErrNotFound, s.kind, id)
		}
		return fmt.Errorf("failed to delete %s: %w", s.kind, err)
	}

	return nil
}

// Get retrieves one entity visible to the actor
func (s *referenceService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reference, error) {
	return s.getOwned(ctx, actor, id)
}

// List retrieves the actor's entities sorted by name
func (s *referenceService) List(ctx context.Context, actor domain.Actor) ([]*domain.Reference, error) {
	refs, err := s.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", s.kind, err)
	}
	return refs, nil
}
