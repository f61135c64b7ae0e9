package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

var testSecret = []byte("test-state-secret")

func testGoogle(t *testing.T) *Google {
	t.Helper()
	g, err := NewGoogle(&Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		StateSecret:  testSecret,
	})
	if err != nil {
		t.Fatalf("NewGoogle() error = %v", err)
	}
	return g
}

func TestNewGoogle_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"missing client id", &Config{ClientSecret: "s", StateSecret: testSecret}},
		{"missing client secret", &Config{ClientID: "c", StateSecret: testSecret}},
		{"missing state secret", &Config{ClientID: "c", ClientSecret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGoogle(tt.cfg); err == nil {
				t.Error("NewGoogle() should reject incomplete config")
			}
		})
	}
}

func TestStateCodec_Roundtrip(t *testing.T) {
	c := &stateCodec{secret: testSecret}

	token, nonce, err := c.issue(time.Now())
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}
	if len(nonce) != 32 {
		t.Fatalf("nonce = %q, want 16 random bytes hex encoded", nonce)
	}

	got, err := c.verify(token)
	if err != nil {
		t.Fatalf("verify() error = %v", err)
	}
	if got != nonce {
		t.Errorf("verify() nonce = %q, want %q", got, nonce)
	}
}

func TestStateCodec_Expired(t *testing.T) {
	c := &stateCodec{secret: testSecret}

	token, _, err := c.issue(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}

	if _, err := c.verify(token); !errors.Is(err, ErrStateExpired) {
		t.Errorf("verify() error = %v, want ErrStateExpired", err)
	}
}

func TestStateCodec_WrongSecret(t *testing.T) {
	token, _, err := (&stateCodec{secret: testSecret}).issue(time.Now())
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}

	other := &stateCodec{secret: []byte("another-secret")}
	if _, err := other.verify(token); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("verify() error = %v, want ErrStateInvalid", err)
	}
}

func TestStateCodec_Garbage(t *testing.T) {
	c := &stateCodec{secret: testSecret}
	if _, err := c.verify("not-a-jwt"); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("verify() error = %v, want ErrStateInvalid", err)
	}
}

func TestBegin(t *testing.T) {
	g := testGoogle(t)

	rec := httptest.NewRecorder()
	authURL, err := g.Begin(rec)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("Begin() returned unparseable URL: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("auth URL missing state parameter")
	}
	if got := u.Query().Get("client_id"); got != "client-id" {
		t.Errorf("client_id = %q", got)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != nonceCookieName {
		t.Fatalf("expected a nonce cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("nonce cookie must be HttpOnly")
	}

	// The state token's nonce matches the cookie.
	nonce, err := g.state.verify(state)
	if err != nil {
		t.Fatalf("state did not verify: %v", err)
	}
	if nonce != cookies[0].Value {
		t.Error("state nonce and cookie nonce disagree")
	}
}

// fakeProvider stands in for Google's token and userinfo endpoints.
func fakeProvider(t *testing.T, userinfoStatus int, userinfoBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-access","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userinfoStatus)
		w.Write([]byte(userinfoBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// beginCallback runs Begin and builds the provider's redirect back.
func beginCallback(t *testing.T, g *Google, tweak func(q url.Values)) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	beginRec := httptest.NewRecorder()
	authURL, err := g.Begin(beginRec)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	u, _ := url.Parse(authURL)

	q := url.Values{}
	q.Set("state", u.Query().Get("state"))
	q.Set("code", "fake-code")
	if tweak != nil {
		tweak(q)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+q.Encode(), nil)
	for _, c := range beginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	return httptest.NewRecorder(), req
}

func TestCallback(t *testing.T) {
	srv := fakeProvider(t, http.StatusOK,
		`{"sub":"google-sub-1","email":"pat@example.com","name":"Pat"}`)

	g := testGoogle(t)
	g.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userinfoURL = srv.URL + "/userinfo"

	rec, req := beginCallback(t, g, nil)
	profile, err := g.Callback(context.Background(), rec, req)
	if err != nil {
		t.Fatalf("Callback() error = %v", err)
	}

	if profile.SubjectID != "google-sub-1" {
		t.Errorf("SubjectID = %q", profile.SubjectID)
	}
	if profile.Email != "pat@example.com" {
		t.Errorf("Email = %q", profile.Email)
	}
	if profile.DisplayName != "Pat" {
		t.Errorf("DisplayName = %q", profile.DisplayName)
	}

	// Nonce cookie is cleared.
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("Callback() should clear the nonce cookie")
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	g := testGoogle(t)

	rec, req := beginCallback(t, g, func(q url.Values) {
		// State minted by a different browser session.
		other, _, _ := (&stateCodec{secret: testSecret}).issue(time.Now())
		q.Set("state", other)
	})

	if _, err := g.Callback(context.Background(), rec, req); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("Callback() error = %v, want ErrStateInvalid", err)
	}
}

func TestCallback_MissingNonceCookie(t *testing.T) {
	g := testGoogle(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=x&code=y", nil)
	if _, err := g.Callback(context.Background(), httptest.NewRecorder(), req); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("Callback() error = %v, want ErrStateInvalid", err)
	}
}

func TestCallback_ProviderDenied(t *testing.T) {
	g := testGoogle(t)

	rec, req := beginCallback(t, g, func(q url.Values) {
		q.Set("error", "access_denied")
		q.Del("code")
	})

	if _, err := g.Callback(context.Background(), rec, req); !errors.Is(err, ErrCallbackDenied) {
		t.Errorf("Callback() error = %v, want ErrCallbackDenied", err)
	}
}

func TestCallback_IncompleteProfile(t *testing.T) {
	srv := fakeProvider(t, http.StatusOK, `{"email":"pat@example.com"}`)

	g := testGoogle(t)
	g.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userinfoURL = srv.URL + "/userinfo"

	rec, req := beginCallback(t, g, nil)
	if _, err := g.Callback(context.Background(), rec, req); !errors.Is(err, ErrProfileIncomplete) {
		t.Errorf("Callback() error = %v, want ErrProfileIncomplete", err)
	}
}

func TestCallback_UserinfoUnavailable(t *testing.T) {
	srv := fakeProvider(t, http.StatusInternalServerError, `{}`)

	g := testGoogle(t)
	g.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userinfoURL = srv.URL + "/userinfo"

	rec, req := beginCallback(t, g, nil)
	if _, err := g.Callback(context.Background(), rec, req); !errors.Is(err, ErrProfileFetch) {
		t.Errorf("Callback() error = %v, want ErrProfileFetch", err)
	}
}
