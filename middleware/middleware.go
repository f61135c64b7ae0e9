// Package middleware provides HTTP middleware for session-backed
// authentication.
package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/nmehta6/dishcovery/session"
	"github.com/nmehta6/dishcovery/store"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

// UserKey is the context key for storing the authenticated user.
const UserKey contextKey = "dishcovery_user"

// SetUser stores the authenticated user in the request context.
func SetUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFrom retrieves the authenticated user from the context. It
// returns nil for anonymous requests.
func UserFrom(ctx context.Context) *store.User {
	user, _ := ctx.Value(UserKey).(*store.User)
	return user
}

// Sessions creates a middleware that resolves the session cookie to a
// user once per request and stores the result in the context. Requests
// without a valid session pass through as anonymous; downstream
// handlers read the outcome with UserFrom.
//
// A session store failure is treated as anonymous rather than a hard
// error so that public pages stay reachable during an outage.
func Sessions(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := mgr.Current(r.Context(), r)
			if err != nil {
				log.Printf("[session] resolve failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetUser(r.Context(), user)))
		})
	}
}

// RequireUser creates a middleware that rejects anonymous requests.
// Browsers are redirected to loginPath; requests that expect JSON get
// a plain 401.
func RequireUser(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFrom(r.Context()) == nil {
				if wantsJSON(r) {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}
