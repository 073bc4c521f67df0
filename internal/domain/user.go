package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the authorization layer. Admins see every tenant's
// data, regular users only their own.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account owning catalog entries and shopping lists
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken represents a long-lived token used to mint access tokens
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Actor identifies the authenticated principal invoking an operation.
// Built by the auth middleware from JWT claims.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the actor may access entities of other owners
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
