// Package web is the HTTP layer: routing, handlers and server-side
// rendered pages.
package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nmehta6/dishcovery/identity"
	appmw "github.com/nmehta6/dishcovery/middleware"
	"github.com/nmehta6/dishcovery/oauth"
	"github.com/nmehta6/dishcovery/ratelimit"
	"github.com/nmehta6/dishcovery/recipes"
	"github.com/nmehta6/dishcovery/session"
	"github.com/nmehta6/dishcovery/store"
)

// Config holds the collaborators the HTTP layer needs.
type Config struct {
	Resolver  *identity.Resolver
	Sessions  *session.Manager
	Provider  recipes.Provider
	Favorites store.Favorites

	// Google enables Google sign-in when set.
	Google *oauth.Google

	// Limiter rate-limits the credential-handling endpoints when set.
	Limiter ratelimit.Limiter
}

// Server handles all HTTP traffic.
type Server struct {
	resolver  *identity.Resolver
	sessions  *session.Manager
	provider  recipes.Provider
	favorites store.Favorites
	google    *oauth.Google
	limiter   ratelimit.Limiter
	render    *renderer
}

// NewServer creates the HTTP server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Resolver == nil || cfg.Sessions == nil || cfg.Provider == nil || cfg.Favorites == nil {
		return nil, errors.New("web: resolver, sessions, provider and favorites are required")
	}

	render, err := newRenderer()
	if err != nil {
		return nil, err
	}

	return &Server{
		resolver:  cfg.Resolver,
		sessions:  cfg.Sessions,
		provider:  cfg.Provider,
		favorites: cfg.Favorites,
		google:    cfg.Google,
		limiter:   cfg.Limiter,
		render:    render,
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(appmw.Sessions(s.sessions))

	r.Get("/", s.handleHome)
	r.Get("/search", s.handleHome)
	r.Post("/search", s.handleSearch)
	r.Get("/recipe/{id}", s.handleRecipe)

	r.Get("/login", s.handleLoginPage)
	r.Get("/signup", s.handleSignupPage)
	r.Get("/logout", s.handleLogout)

	// Credential submissions share one rate-limit bucket per client.
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter, nil))
		}
		r.Post("/login", s.handleLogin)
		r.Post("/signup", s.handleSignup)
	})

	if s.google != nil {
		r.Get("/auth/google", s.handleGoogleStart)
		r.Get("/auth/google/callback", s.handleGoogleCallback)
	}

	r.Route("/favourites", func(r chi.Router) {
		r.Use(appmw.RequireUser("/login"))
		r.Get("/", s.handleFavourites)
		r.Post("/{id}", s.handleFavouriteAdd)
		r.Post("/remove/{id}", s.handleFavouriteRemove)
	})

	r.Handle("/static/*", staticHandler())

	return r
}
