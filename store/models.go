package store

import (
	"time"
)

// AuthMethod identifies how an account authenticates. It is a closed
// set: accounts are created through exactly one of these paths.
type AuthMethod string

const (
	// AuthMethodLocal is an email/password account.
	AuthMethodLocal AuthMethod = "local"

	// AuthMethodGoogle is an account created through Google OAuth.
	AuthMethodGoogle AuthMethod = "google"
)

// User is the sole identity entity.
type User struct {
	// ID is the opaque unique identifier, assigned on creation and
	// immutable. Sessions reference users by this id.
	ID string `db:"id" json:"id"`

	// Email is unique across all users. Matching is exact-match and
	// case-sensitive.
	Email string `db:"email" json:"email"`

	// PasswordHash is the one-way hash for local accounts.
	// Nil for OAuth-created accounts: no usable credential exists, so
	// none is stored.
	PasswordHash *string `db:"password_hash" json:"-"`

	// GoogleID links a Google OAuth identity to this row.
	// Nil for local accounts; unique when present.
	GoogleID *string `db:"google_id" json:"google_id,omitempty"`

	// Username is the display name. No uniqueness constraint.
	Username string `db:"username" json:"username"`

	// AuthMethod records how the account was created.
	AuthMethod AuthMethod `db:"auth_method" json:"auth_method"`

	// CreatedAt is when the account was created.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasPassword returns true if the user has a usable local credential.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Session represents a server-side session binding.
type Session struct {
	// ID is the unique identifier for the session row.
	ID string `db:"id" json:"id"`

	// UserID is the user this session is bound to.
	UserID string `db:"user_id" json:"user_id"`

	// TokenHash is the SHA256 hash of the client-held token.
	// The raw token is never stored.
	TokenHash string `db:"token_hash" json:"token_hash"`

	// IssuedAt is when the session was established.
	IssuedAt time.Time `db:"issued_at" json:"issued_at"`

	// ExpiresAt is when the session expires.
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// IsExpired returns true if the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Favorite is a recipe saved to a user's favourites list.
// Title, image and cooking time are denormalized from the recipe
// provider so the list renders without further API calls.
type Favorite struct {
	// ID is assigned by the store on insert.
	ID int64 `db:"id" json:"id"`

	// UserID is the owning user.
	UserID string `db:"user_id" json:"user_id"`

	// RecipeID is the provider's recipe identifier.
	RecipeID int `db:"recipe_id" json:"recipe_id"`

	// Title is the recipe title at save time.
	Title string `db:"recipe_title" json:"recipe_title"`

	// Image is the recipe image URL at save time.
	Image string `db:"recipe_image" json:"recipe_image"`

	// ReadyInMinutes is the cooking time at save time.
	ReadyInMinutes int `db:"ready_in_minutes" json:"ready_in_minutes"`

	// CreatedAt is when the favourite was saved.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
