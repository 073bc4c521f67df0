package ledger

import (
	"errors"
	"sort"
	"time"

	"shoplist/internal/domain"
)

var (
	// ErrNoPrices indicates an article with an empty price history. Every
	// fully-created article carries at least one record, so hitting this is
	// an invariant violation rather than a normal lookup miss.
	ErrNoPrices = errors.New("article has no price records")
)

// Resolve returns the price applicable to an article as of a given time,
// using the article's full history sorted ascending by creation time.
//
// With a nil instant the most recently created record wins. Otherwise the
// latest record created at or before the instant wins; when the instant
// predates the whole history, the earliest known record is returned as the
// documented fallback, never a not-found.
func Resolve(prices []domain.Price, at *time.Time) (*domain.Price, error) {
	if len(prices) == 0 {
		return nil, ErrNoPrices
	}

	sorted := sortedByCreation(prices)

	if at == nil {
		return &sorted[len(sorted)-1], nil
	}

	// First index whose record is created strictly after the instant.
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].CreatedAt.After(*at)
	})

	if idx == 0 {
		// Instant predates the earliest record: oldest known price.
		return &sorted[0], nil
	}

	return &sorted[idx-1], nil
}

// sortedByCreation returns a copy of the history in ascending creation
// order. Resolve accepts histories assembled in any order.
func sortedByCreation(prices []domain.Price) []domain.Price {
	sorted := make([]domain.Price, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}
