package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost breakdown bucket names. Category buckets are keyed by the category
// name; the two fixed buckets are always present in a breakdown.
const (
	BucketUncategorized = "uncategorized"
	BucketTotal         = "total"
)

// ShoppingList is an ordered collection of line items. UpdatedAt advances
// whenever the list or any of its items changes and doubles as the
// invalidation key for cached cost rows. A finalized list rejects all
// item-level mutation until it is un-finalized or deleted as a whole.
type ShoppingList struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	Finalized  bool       `json:"finalized" db:"finalized"`
	CategoryID *uuid.UUID `json:"category_id" db:"category_id"`
	OwnerID    uuid.UUID  `json:"owner_id" db:"owner_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// ShoppingListItem is one line of a shopping list: an article, an amount
// and an optional offer price overriding the article's ledger price. A list
// holds at most one item per article.
type ShoppingListItem struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	ListID     uuid.UUID        `json:"list_id" db:"list_id"`
	ArticleID  uuid.UUID        `json:"article_id" db:"article_id"`
	Amount     decimal.Decimal  `json:"amount" db:"amount"`
	OfferPrice *decimal.Decimal `json:"offer_price" db:"offer_price"`
	OwnerID    uuid.UUID        `json:"owner_id" db:"owner_id"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// ShoppingListCost is one materialized cost row of a list. A row is valid
// only while CreatedAt equals the parent list's UpdatedAt; a mismatch marks
// the whole snapshot stale. Bucket carries the breakdown key since a nil
// CategoryID alone cannot tell the uncategorized bucket from the total.
type ShoppingListCost struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ListID     uuid.UUID       `json:"list_id" db:"list_id"`
	CategoryID *uuid.UUID      `json:"category_id" db:"category_id"`
	Bucket     string          `json:"bucket" db:"bucket"`
	Cost       decimal.Decimal `json:"cost" db:"cost"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// CostBreakdown maps bucket names to subtotals. Contains one entry per
// category represented in the list plus BucketUncategorized and BucketTotal.
type CostBreakdown map[string]decimal.Decimal
