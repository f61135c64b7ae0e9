// Package identity turns raw credentials or OAuth profile data into a
// canonical user record.
//
// Two entry protocols exist: the local protocol verifies an email and
// password against the stored hash, and the OAuth protocol reconciles
// a provider subject id with a user row, creating one on first login.
// Session state is out of scope here; see the session package.
package identity

import (
	"context"
	"errors"

	"github.com/nmehta6/dishcovery/internal/crypto"
	"github.com/nmehta6/dishcovery/password"
	"github.com/nmehta6/dishcovery/store"
)

// ProviderGoogle is the only OAuth provider currently handled.
const ProviderGoogle = "google"

// CollisionPolicy decides what happens when an OAuth login presents an
// email that already belongs to a local account.
type CollisionPolicy string

const (
	// CollisionReject keeps local and OAuth identities distinct: the
	// OAuth login fails with ErrIdentityExists and the user is told to
	// sign in with their password.
	CollisionReject CollisionPolicy = "reject"

	// CollisionLink attaches the provider id to the existing local row
	// on first OAuth login, merging the two paths onto one identity.
	CollisionLink CollisionPolicy = "link"
)

// Config holds resolver configuration.
type Config struct {
	// EmailCollisionPolicy selects the behavior when an OAuth profile
	// email matches an existing account. Defaults to CollisionReject.
	EmailCollisionPolicy CollisionPolicy
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() *Config {
	return &Config{
		EmailCollisionPolicy: CollisionReject,
	}
}

// Profile is the subset of an OAuth provider profile the resolver
// consumes.
type Profile struct {
	// Provider names the OAuth provider (see ProviderGoogle).
	Provider string

	// SubjectID is the provider's stable identifier for the user.
	SubjectID string

	// Email is the profile email.
	Email string

	// DisplayName becomes the username on first login.
	DisplayName string
}

// Resolver resolves credentials and provider profiles to user records.
type Resolver struct {
	users  store.Users
	hasher password.Hasher
	config *Config
}

// NewResolver creates a resolver backed by the given user store and
// password hasher. If config is nil, DefaultConfig is used.
func NewResolver(users store.Users, hasher password.Hasher, config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{
		users:  users,
		hasher: hasher,
		config: config,
	}
}

// ResolveLocal verifies an email and plaintext password.
//
// Both failure kinds match ErrAuthenticationFailed; the boundary must
// not tell a caller which one occurred.
func (r *Resolver) ResolveLocal(ctx context.Context, email, plaintext string) (*store.User, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewAuthError(CodeUnknownIdentity, "no account for email", ErrUnknownIdentity)
	}
	if err != nil {
		return nil, NewAuthError(CodeStoreUnavailable, "user lookup failed", errors.Join(ErrStoreUnavailable, err))
	}

	// OAuth-created accounts have no usable password.
	if !user.HasPassword() {
		return nil, NewAuthError(CodeInvalidCredential, "account has no password", ErrInvalidCredential)
	}

	ok, err := r.hasher.Verify(plaintext, *user.PasswordHash)
	if err != nil {
		return nil, NewAuthError(CodeInvalidCredential, "password verification failed", errors.Join(ErrInvalidCredential, err))
	}
	if !ok {
		return nil, NewAuthError(CodeInvalidCredential, "password mismatch", ErrInvalidCredential)
	}

	// The plaintext is only available here, so hashes produced with
	// outdated parameters are upgraded on login. Best effort: the old
	// hash still verifies if the rewrite fails.
	if r.hasher.NeedsRehash(*user.PasswordHash) {
		if rehashed, err := r.hasher.Hash(plaintext); err == nil {
			if err := r.users.UpdatePasswordHash(ctx, user.ID, rehashed); err == nil {
				user.PasswordHash = &rehashed
			}
		}
	}

	return user, nil
}

// ResolveOAuth reconciles an OAuth profile with a user record.
//
// An existing row for the subject id is returned unchanged; absence
// means "create", so this path never fails on not-found. It is
// idempotent: two logins with the same subject id resolve to the same
// user, even when they race.
func (r *Resolver) ResolveOAuth(ctx context.Context, profile Profile) (*store.User, error) {
	if profile.Provider != ProviderGoogle {
		return nil, NewAuthError(CodeUnsupportedProvider, profile.Provider, ErrUnsupportedProvider)
	}

	user, err := r.users.GetUserByGoogleID(ctx, profile.SubjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, NewAuthError(CodeStoreUnavailable, "provider lookup failed", errors.Join(ErrStoreUnavailable, err))
	}

	// No row for this subject id yet. An existing account with the
	// profile email is handled per the collision policy.
	existing, err := r.users.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if r.config.EmailCollisionPolicy != CollisionLink {
			return nil, NewAuthError(CodeIdentityExists, "email belongs to another account", ErrIdentityExists)
		}
		if err := r.users.LinkGoogleID(ctx, existing.ID, profile.SubjectID); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// Either another login linked this same subject
				// first, or the account is already bound to a
				// different Google subject.
				if linked, getErr := r.users.GetUserByGoogleID(ctx, profile.SubjectID); getErr == nil {
					return linked, nil
				}
				return nil, NewAuthError(CodeIdentityExists, "email belongs to another account", ErrIdentityExists)
			}
			return nil, NewAuthError(CodeStoreUnavailable, "account link failed", errors.Join(ErrStoreUnavailable, err))
		}
		return r.users.GetUserByID(ctx, existing.ID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, NewAuthError(CodeStoreUnavailable, "email lookup failed", errors.Join(ErrStoreUnavailable, err))
	}

	id, err := crypto.UserID()
	if err != nil {
		return nil, err
	}

	subjectID := profile.SubjectID
	user = &store.User{
		ID:         id,
		Email:      profile.Email,
		GoogleID:   &subjectID,
		Username:   profile.DisplayName,
		AuthMethod: store.AuthMethodGoogle,
	}

	if err := r.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Either a concurrent login created the row for this
			// subject, or the email was taken in between. The unique
			// constraint decided; re-resolve by subject id.
			if existing, getErr := r.users.GetUserByGoogleID(ctx, profile.SubjectID); getErr == nil {
				return existing, nil
			}
			return nil, NewAuthError(CodeIdentityExists, "email belongs to another account", ErrIdentityExists)
		}
		return nil, NewAuthError(CodeStoreUnavailable, "user creation failed", errors.Join(ErrStoreUnavailable, err))
	}

	return user, nil
}

// Register creates a local account with a hashed password.
//
// Uniqueness is enforced by the store's constraint, not by a
// check-then-insert: concurrent signups with the same email produce
// exactly one row and ErrIdentityExists for the losers.
func (r *Resolver) Register(ctx context.Context, email, plaintext, username string) (*store.User, error) {
	hash, err := r.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	id, err := crypto.UserID()
	if err != nil {
		return nil, err
	}

	user := &store.User{
		ID:           id,
		Email:        email,
		PasswordHash: &hash,
		Username:     username,
		AuthMethod:   store.AuthMethodLocal,
	}

	if err := r.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, NewAuthError(CodeIdentityExists, "signup conflict", ErrIdentityExists)
		}
		return nil, NewAuthError(CodeStoreUnavailable, "user creation failed", errors.Join(ErrStoreUnavailable, err))
	}

	return user, nil
}
