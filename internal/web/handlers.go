package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nmehta6/dishcovery/identity"
	appmw "github.com/nmehta6/dishcovery/middleware"
	"github.com/nmehta6/dishcovery/recipes"
	"github.com/nmehta6/dishcovery/store"
)

// genericAuthFailure is shown for every failed login, whatever the
// cause, so the form never reveals whether an email is registered.
const genericAuthFailure = "Invalid email or password"

func (s *Server) pageData(r *http.Request) *pageData {
	return &pageData{User: appmw.UserFrom(r.Context())}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r)
	data.LoggedOut = r.URL.Query().Get("loggedout") == "true"
	data.ErrorMessage = r.URL.Query().Get("errorMessage")
	s.render.render(w, http.StatusOK, "index", data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.FormValue("food"))
	if query == "" {
		data := s.pageData(r)
		data.ErrorMessage = "Type something to search for"
		s.render.render(w, http.StatusBadRequest, "index", data)
		return
	}

	results, err := s.provider.Search(r.Context(), query)
	if err != nil {
		log.Printf("[web] search %q: %v", query, err)
		data := s.pageData(r)
		data.ErrorMessage = "Something went wrong!"
		s.render.render(w, http.StatusBadGateway, "index", data)
		return
	}

	if len(results) == 0 {
		data := s.pageData(r)
		data.ErrorMessage = fmt.Sprintf("Can't find recipe for %q", query)
		s.render.render(w, http.StatusOK, "index", data)
		return
	}

	data := s.pageData(r)
	data.Query = query
	data.Recipes = results
	s.render.render(w, http.StatusOK, "results", data)
}

func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	recipe, err := s.provider.Detail(r.Context(), id)
	if err != nil {
		data := s.pageData(r)
		if errors.Is(err, recipes.ErrNotFound) {
			data.ErrorMessage = "We couldn't find that recipe"
			s.render.render(w, http.StatusNotFound, "index", data)
			return
		}
		log.Printf("[web] recipe %d: %v", id, err)
		data.ErrorMessage = "Something went wrong!"
		s.render.render(w, http.StatusBadGateway, "index", data)
		return
	}

	data := s.pageData(r)
	data.Recipe = recipe
	s.render.render(w, http.StatusOK, "recipe", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if appmw.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render.render(w, http.StatusOK, "login", s.pageData(r))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	plaintext := r.FormValue("password")

	user, err := s.resolver.ResolveLocal(r.Context(), email, plaintext)
	if err != nil {
		data := s.pageData(r)
		if errors.Is(err, identity.ErrAuthenticationFailed) {
			data.ErrorMessage = genericAuthFailure
			s.render.render(w, http.StatusUnauthorized, "login", data)
			return
		}
		log.Printf("[web] login: %v", err)
		data.ErrorMessage = "Something went wrong. Please try again later."
		s.render.render(w, http.StatusServiceUnavailable, "login", data)
		return
	}

	if err := s.sessions.Establish(r.Context(), w, user); err != nil {
		log.Printf("[web] establish session: %v", err)
		data := s.pageData(r)
		data.ErrorMessage = "Something went wrong. Please try again later."
		s.render.render(w, http.StatusInternalServerError, "login", data)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if appmw.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render.render(w, http.StatusOK, "signup", s.pageData(r))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	plaintext := r.FormValue("password")
	username := strings.TrimSpace(r.FormValue("username"))

	if email == "" || plaintext == "" || username == "" {
		data := s.pageData(r)
		data.ErrorMessage = "All fields are required"
		s.render.render(w, http.StatusBadRequest, "signup", data)
		return
	}

	user, err := s.resolver.Register(r.Context(), email, plaintext, username)
	if err != nil {
		data := s.pageData(r)
		if errors.Is(err, identity.ErrIdentityExists) {
			data.ErrorMessage = "User already exists"
			s.render.render(w, http.StatusConflict, "signup", data)
			return
		}
		log.Printf("[web] signup: %v", err)
		data.ErrorMessage = "Something went wrong. Please try again later."
		s.render.render(w, http.StatusInternalServerError, "signup", data)
		return
	}

	if err := s.sessions.Establish(r.Context(), w, user); err != nil {
		log.Printf("[web] establish session: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The cookie is cleared even when the store delete fails; the
	// user always leaves logged out.
	if err := s.sessions.Destroy(r.Context(), w, r); err != nil {
		log.Printf("[web] logout: %v", err)
	}
	http.Redirect(w, r, "/?loggedout=true", http.StatusSeeOther)
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.google.Begin(w)
	if err != nil {
		log.Printf("[web] google begin: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	profile, err := s.google.Callback(r.Context(), w, r)
	if err != nil {
		log.Printf("[web] google callback: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := s.resolver.ResolveOAuth(r.Context(), *profile)
	if err != nil {
		log.Printf("[web] google resolve: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := s.sessions.Establish(r.Context(), w, user); err != nil {
		log.Printf("[web] establish session: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFavourites(w http.ResponseWriter, r *http.Request) {
	user := appmw.UserFrom(r.Context())

	favs, err := s.favorites.ListFavorites(r.Context(), user.ID)
	if err != nil {
		log.Printf("[web] list favourites: %v", err)
		http.Error(w, "failed to load favourites", http.StatusInternalServerError)
		return
	}

	data := s.pageData(r)
	data.Favourites = favs
	s.render.render(w, http.StatusOK, "favourites", data)
}

func (s *Server) handleFavouriteAdd(w http.ResponseWriter, r *http.Request) {
	user := appmw.UserFrom(r.Context())

	recipeID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	readyIn, _ := strconv.Atoi(r.FormValue("readyInMinutes"))
	fav := &store.Favorite{
		UserID:         user.ID,
		RecipeID:       recipeID,
		Title:          r.FormValue("title"),
		Image:          r.FormValue("image"),
		ReadyInMinutes: readyIn,
	}

	if err := s.favorites.AddFavorite(r.Context(), fav); err != nil {
		log.Printf("[web] add favourite: %v", err)
		http.Error(w, "failed to save favourite", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/favourites", http.StatusSeeOther)
}

func (s *Server) handleFavouriteRemove(w http.ResponseWriter, r *http.Request) {
	user := appmw.UserFrom(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Removing something already gone is fine; the list page is the
	// source of truth either way.
	if err := s.favorites.RemoveFavorite(r.Context(), id, user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[web] remove favourite: %v", err)
	}

	http.Redirect(w, r, "/favourites", http.StatusSeeOther)
}
