// Package session maps resolved identities to server-side sessions.
//
// The client holds an opaque random token in an HttpOnly cookie; the
// server stores only the token's SHA256 hash alongside the user id and
// expiry. Each request deserializes the cookie back into a full user
// record by re-querying the user store, so a deleted user or swept
// session degrades to anonymous rather than erroring.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nmehta6/dishcovery/internal/crypto"
	"github.com/nmehta6/dishcovery/internal/hash"
	"github.com/nmehta6/dishcovery/store"
)

// Default configuration values.
const (
	DefaultCookieName = "dishcovery_session"
	DefaultTTL        = 30 * 24 * time.Hour
)

// Config holds session manager configuration.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// TTL is how long a session is valid.
	TTL time.Duration

	// Secure marks the cookie as HTTPS-only. Leave false only for
	// local development.
	Secure bool
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() *Config {
	return &Config{
		CookieName: DefaultCookieName,
		TTL:        DefaultTTL,
	}
}

// Manager owns the session lifecycle: establish on login, resolve on
// every request, destroy on logout.
type Manager struct {
	sessions store.Sessions
	users    store.Users
	config   *Config
}

// NewManager creates a session manager. Sessions and users may be
// served by different backends (e.g. Redis sessions over SQL users).
// If config is nil, DefaultConfig is used.
func NewManager(sessions store.Sessions, users store.Users, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &Manager{
		sessions: sessions,
		users:    users,
		config:   config,
	}
}

// Establish binds a resolved user to a new session and sets the
// session cookie. Only the user id crosses into the session record;
// everything else is re-read from the user store per request.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, user *store.User) error {
	token, err := crypto.SessionToken()
	if err != nil {
		return err
	}
	id, err := crypto.SessionID()
	if err != nil {
		return err
	}

	now := time.Now()
	session := &store.Session{
		ID:        id,
		UserID:    user.ID,
		TokenHash: hash.SHA256(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.config.TTL),
	}

	if err := m.sessions.SaveSession(ctx, session); err != nil {
		return err
	}

	m.setCookie(w, token, session.ExpiresAt)
	return nil
}

// Current resolves the request's session cookie to a full user record.
//
// A missing cookie, unknown or expired session, or vanished user all
// mean anonymous: (nil, nil). An error is returned only when the store
// itself failed, and callers should treat that request as anonymous
// after logging.
func (m *Manager) Current(ctx context.Context, r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	tokenHash := hash.SHA256(cookie.Value)
	session, err := m.sessions.GetSessionByTokenHash(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		// Best effort; the sweeper will catch it otherwise.
		_ = m.sessions.DeleteSessionByTokenHash(ctx, tokenHash)
		return nil, nil
	}

	user, err := m.users.GetUserByID(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Destroy ends the request's session. The cookie is always cleared,
// even when the server-side delete fails; the failure still propagates
// so the caller can log it.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, cookieErr := r.Cookie(m.config.CookieName)

	m.clearCookie(w)

	if cookieErr != nil || cookie.Value == "" {
		return nil
	}
	return m.sessions.DeleteSessionByTokenHash(ctx, hash.SHA256(cookie.Value))
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.config.CookieName
}

func (m *Manager) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.config.Secure,
		Expires:  expires,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.config.Secure,
		MaxAge:   -1,
	})
}
