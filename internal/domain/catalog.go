package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference is a named lookup entity (store, category or brand) owned by a
// user. Names are unique per owner, case-insensitively. References created
// implicitly through an article association are garbage collected when
// their last article leaves; explicitly created ones share the same shape.
type Reference struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Article represents a product in a user's catalog. Name is unique among
// the owner's articles within the same store, case-insensitively.
type Article struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Detail     string     `json:"detail" db:"detail"`
	StoreID    *uuid.UUID `json:"store_id" db:"store_id"`
	CategoryID *uuid.UUID `json:"category_id" db:"category_id"`
	BrandID    *uuid.UUID `json:"brand_id" db:"brand_id"`
	OwnerID    uuid.UUID  `json:"owner_id" db:"owner_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Price is one immutable record in an article's price ledger. Records are
// appended when the article's declared price changes and are never mutated
// or deleted, except through cascading article deletion.
type Price struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ArticleID uuid.UUID       `json:"article_id" db:"article_id"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Currency  string          `json:"currency" db:"currency"`
	OwnerID   uuid.UUID       `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DefaultCurrency is used when a price is submitted without one
const DefaultCurrency = "EUR"
