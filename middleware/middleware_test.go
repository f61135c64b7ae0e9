package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nmehta6/dishcovery/session"
	"github.com/nmehta6/dishcovery/store"
	"github.com/nmehta6/dishcovery/store/memory"
)

func newSessionManager(t *testing.T) (*session.Manager, *memory.Store) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })
	return session.NewManager(s, s, nil), s
}

func login(t *testing.T, mgr *session.Manager, s *memory.Store, id string) []*http.Cookie {
	t.Helper()
	user := &store.User{ID: id, Email: id + "@x.com", Username: id, AuthMethod: store.AuthMethodLocal}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	rec := httptest.NewRecorder()
	if err := mgr.Establish(context.Background(), rec, user); err != nil {
		t.Fatalf("Establish() error = %v", err)
	}
	return rec.Result().Cookies()
}

func TestUserFrom(t *testing.T) {
	if got := UserFrom(context.Background()); got != nil {
		t.Errorf("UserFrom(empty) = %+v, want nil", got)
	}

	user := &store.User{ID: "u1"}
	ctx := SetUser(context.Background(), user)
	if got := UserFrom(ctx); got != user {
		t.Errorf("UserFrom() = %+v, want stored user", got)
	}
}

func TestSessions(t *testing.T) {
	mgr, s := newSessionManager(t)
	cookies := login(t, mgr, s, "u1")

	var seen *store.User
	handler := Sessions(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
	}))

	t.Run("authenticated", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen == nil || seen.ID != "u1" {
			t.Errorf("handler saw user %+v, want u1", seen)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if seen != nil {
			t.Errorf("handler saw user %+v, want nil", seen)
		}
	})

	t.Run("garbage cookie", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: mgr.CookieName(), Value: "bogus"})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != nil {
			t.Errorf("handler saw user %+v, want nil", seen)
		}
	})
}

func TestRequireUser(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireUser("/login")(next)

	t.Run("anonymous redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favourites", nil))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("anonymous json gets 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/favourites", nil)
		req.Header.Set("Accept", "application/json")
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("authenticated passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/favourites", nil)
		req = req.WithContext(SetUser(req.Context(), &store.User{ID: "u1"}))
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
