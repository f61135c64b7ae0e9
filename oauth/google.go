// Package oauth implements the Google sign-in flow. It drives the
// authorization-code exchange and hands the verified profile to the
// identity resolver; it never mints application sessions itself.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nmehta6/dishcovery/identity"
)

const (
	// nonceCookieName carries the state nonce across the provider
	// redirect.
	nonceCookieName = "dishcovery_oauth_nonce"

	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Flow errors.
var (
	ErrCallbackDenied    = errors.New("oauth callback was denied by the provider")
	ErrExchangeFailed    = errors.New("oauth code exchange failed")
	ErrProfileFetch      = errors.New("oauth profile fetch failed")
	ErrProfileIncomplete = errors.New("oauth profile is missing required fields")
)

// Config holds Google OAuth configuration.
type Config struct {
	// ClientID and ClientSecret identify the application to Google.
	ClientID     string
	ClientSecret string

	// RedirectURL is the registered callback URL.
	RedirectURL string

	// StateSecret signs the state token carried across the redirect.
	StateSecret []byte

	// Secure marks the nonce cookie Secure. Enable behind TLS.
	Secure bool
}

// Google runs the authorization-code flow against Google.
type Google struct {
	oauth  *oauth2.Config
	state  *stateCodec
	secure bool

	// userinfoURL is overridable in tests.
	userinfoURL string
}

// NewGoogle creates a Google OAuth flow.
func NewGoogle(cfg *Config) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oauth: client id and secret are required")
	}
	if len(cfg.StateSecret) == 0 {
		return nil, errors.New("oauth: state secret is required")
	}

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		state:       &stateCodec{secret: cfg.StateSecret},
		secure:      cfg.Secure,
		userinfoURL: googleUserinfoURL,
	}, nil
}

// Begin mints a state token, stores its nonce in a short-lived cookie
// and returns the provider URL to redirect the browser to.
func (g *Google) Begin(w http.ResponseWriter) (string, error) {
	token, nonce, err := g.state.issue(time.Now())
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return g.oauth.AuthCodeURL(token), nil
}

// Callback validates the returned state against the nonce cookie,
// exchanges the code and fetches the user's profile. The nonce cookie
// is cleared regardless of outcome.
func (g *Google) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (*identity.Profile, error) {
	nonceCookie, err := r.Cookie(nonceCookieName)
	g.clearNonceCookie(w)
	if err != nil {
		return nil, ErrStateInvalid
	}

	if errCode := r.URL.Query().Get("error"); errCode != "" {
		return nil, fmt.Errorf("%w: %s", ErrCallbackDenied, errCode)
	}

	nonce, err := g.state.verify(r.URL.Query().Get("state"))
	if err != nil {
		return nil, err
	}
	if nonce != nonceCookie.Value {
		return nil, ErrStateInvalid
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, ErrCallbackDenied
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	return g.fetchProfile(ctx, token)
}

// userinfo mirrors the subset of the OpenID Connect userinfo response
// the resolver needs.
type userinfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *Google) fetchProfile(ctx context.Context, token *oauth2.Token) (*identity.Profile, error) {
	client := g.oauth.Client(ctx, token)

	resp, err := client.Get(g.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProfileFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	var info userinfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, ErrProfileIncomplete
	}

	return &identity.Profile{
		Provider:    identity.ProviderGoogle,
		SubjectID:   info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
	}, nil
}

func (g *Google) clearNonceCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
