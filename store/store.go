// Package store defines the storage interfaces for dishcovery.
package store

import (
	"context"
	"errors"
)

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint (email or google_id). The constraint in the database
	// is the backstop for concurrent signups; implementations must map
	// violations to this error rather than surfacing a driver error.
	ErrDuplicate = errors.New("record already exists")
)

// Users persists user identities.
//
// Email lookups are exact-match and case-sensitive: "A@x.com" and
// "a@x.com" are distinct identities. Normalization, if any, is the
// caller's responsibility.
type Users interface {
	// CreateUser inserts a new user. The caller assigns the ID.
	// Returns ErrDuplicate if the email or google_id is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by internal id.
	// Returns ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by exact email match.
	// Returns ErrNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByGoogleID retrieves a user by Google subject id.
	// Returns ErrNotFound if no such user exists.
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)

	// LinkGoogleID attaches a Google subject id to an existing user.
	// Used only under the link email-collision policy.
	// Returns ErrDuplicate if the google_id is already taken or the
	// user already carries one, and ErrNotFound if the user does not
	// exist. An existing link is never overwritten.
	LinkGoogleID(ctx context.Context, userID, googleID string) error

	// UpdatePasswordHash replaces a user's stored password hash.
	// Used when a credential verifies but its hash was produced with
	// outdated parameters. Returns ErrNotFound if the user does not
	// exist.
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Sessions persists server-side session state.
// Sessions are keyed by the SHA256 hash of the client token; the raw
// token never reaches the store.
type Sessions interface {
	// SaveSession persists a new session.
	SaveSession(ctx context.Context, session *Session) error

	// GetSessionByTokenHash retrieves a session by token hash.
	// Returns ErrNotFound if no such session exists.
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteSessionByTokenHash removes a session. Deleting a session
	// that does not exist is not an error.
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteUserSessions removes all sessions for a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions past their expiry.
	// Returns the number of sessions deleted.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Favorites persists saved recipes per user.
type Favorites interface {
	// AddFavorite saves a recipe to a user's favourites list.
	// The store assigns Favorite.ID.
	AddFavorite(ctx context.Context, fav *Favorite) error

	// ListFavorites returns a user's favourites, newest first.
	ListFavorites(ctx context.Context, userID string) ([]*Favorite, error)

	// RemoveFavorite deletes a favourite by id, scoped to the owning
	// user. Removing a favourite that does not exist is not an error.
	RemoveFavorite(ctx context.Context, id int64, userID string) error
}

// Store is the full persistence interface.
// All methods must be safe for concurrent use.
type Store interface {
	Users
	Sessions
	Favorites

	// Close releases any resources held by the store.
	Close() error

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Migrate creates or updates the database schema.
	Migrate(ctx context.Context) error
}
