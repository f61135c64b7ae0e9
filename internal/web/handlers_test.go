package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nmehta6/dishcovery/identity"
	"github.com/nmehta6/dishcovery/password"
	"github.com/nmehta6/dishcovery/ratelimit"
	"github.com/nmehta6/dishcovery/recipes"
	"github.com/nmehta6/dishcovery/session"
	"github.com/nmehta6/dishcovery/store/memory"
)

// fakeProvider is an in-memory recipes.Provider.
type fakeProvider struct {
	byID map[int]recipes.Recipe
	err  error
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]recipes.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []recipes.Recipe
	for _, r := range f.byID {
		if strings.Contains(strings.ToLower(r.Title), strings.ToLower(query)) {
			out = append(out, r)
		}
	}
	if out == nil {
		out = []recipes.Recipe{}
	}
	return out, nil
}

func (f *fakeProvider) Detail(ctx context.Context, id int) (*recipes.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, recipes.ErrNotFound
	}
	return &r, nil
}

type testApp struct {
	handler  http.Handler
	store    *memory.Store
	provider *fakeProvider
}

func newTestApp(t *testing.T, limiter ratelimit.Limiter) *testApp {
	t.Helper()

	s := memory.New()
	t.Cleanup(func() { s.Close() })

	hasher := password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost})
	resolver := identity.NewResolver(s, hasher, nil)
	sessions := session.NewManager(s, s, nil)
	provider := &fakeProvider{byID: map[int]recipes.Recipe{
		101: {ID: 101, Title: "Quick Pasta", Image: "/p.jpg", ReadyInMinutes: 12,
			Steps: []recipes.Step{{Number: 1, Step: "Boil water."}}},
		102: {ID: 102, Title: "Fast Salad", Image: "/s.jpg", ReadyInMinutes: 5},
	}}

	srv, err := NewServer(&Config{
		Resolver:  resolver,
		Sessions:  sessions,
		Provider:  provider,
		Favorites: s,
		Limiter:   limiter,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	return &testApp{handler: srv.Router(), store: s, provider: provider}
}

func (a *testApp) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) post(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the HTTP surface and returns the
// session cookies.
func (a *testApp) signup(t *testing.T, email, pass, username string) []*http.Cookie {
	t.Helper()
	rec := a.post("/signup", url.Values{
		"email":    {email},
		"password": {pass},
		"username": {username},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup status = %d, body: %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func TestHome(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "What are you craving?") {
		t.Error("home page missing hero copy")
	}
	if !strings.Contains(body, "Log in") {
		t.Error("anonymous home should link to login")
	}
}

func TestSignupAndLogin(t *testing.T) {
	app := newTestApp(t, nil)

	cookies := app.signup(t, "pat@example.com", "hunter2!", "pat")

	// Session is live: home greets the user.
	rec := app.get("/", cookies)
	if !strings.Contains(rec.Body.String(), "Hi, pat") {
		t.Error("home should greet the signed-up user")
	}

	// Duplicate signup is rejected.
	dup := app.post("/signup", url.Values{
		"email":    {"pat@example.com"},
		"password": {"other"},
		"username": {"pat2"},
	}, nil)
	if dup.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", dup.Code)
	}
	if !strings.Contains(dup.Body.String(), "User already exists") {
		t.Error("duplicate signup should explain the conflict")
	}

	// Fresh login works.
	login := app.post("/login", url.Values{
		"email":    {"pat@example.com"},
		"password": {"hunter2!"},
	}, nil)
	if login.Code != http.StatusSeeOther {
		t.Errorf("login status = %d, want 303", login.Code)
	}
	if len(login.Result().Cookies()) == 0 {
		t.Error("login should set a session cookie")
	}
}

func TestSignup_MissingFields(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.post("/signup", url.Values{"email": {"a@x.com"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "pat@example.com", "hunter2!", "pat")

	wrongPassword := app.post("/login", url.Values{
		"email":    {"pat@example.com"},
		"password": {"wrong"},
	}, nil)
	unknownEmail := app.post("/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"wrong"},
	}, nil)

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401 for both", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Error("failure pages must not differ between unknown email and wrong password")
	}
	if !strings.Contains(wrongPassword.Body.String(), genericAuthFailure) {
		t.Error("failure page missing the generic message")
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t, nil)
	cookies := app.signup(t, "pat@example.com", "hunter2!", "pat")

	rec := app.get("/logout", cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?loggedout=true" {
		t.Errorf("Location = %q", loc)
	}

	// Session is gone.
	home := app.get("/", cookies)
	if strings.Contains(home.Body.String(), "Hi, pat") {
		t.Error("user should be anonymous after logout")
	}
}

func TestSearch(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("results", func(t *testing.T) {
		rec := app.post("/search", url.Values{"food": {"pasta"}}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Quick Pasta") {
			t.Error("results page missing matching recipe")
		}
	})

	t.Run("no matches", func(t *testing.T) {
		rec := app.post("/search", url.Values{"food": {"unobtainium"}}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Can&#39;t find recipe") {
			t.Error("empty search should explain no matches")
		}
	})

	t.Run("empty query", func(t *testing.T) {
		rec := app.post("/search", url.Values{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("provider down", func(t *testing.T) {
		app.provider.err = recipes.ErrProviderUnavailable
		defer func() { app.provider.err = nil }()

		rec := app.post("/search", url.Values{"food": {"pasta"}}, nil)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})
}

func TestRecipeDetail(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/recipe/101", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Boil water.") {
		t.Error("detail page missing instructions")
	}

	missing := app.get("/recipe/999", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("missing recipe status = %d, want 404", missing.Code)
	}

	bad := app.get("/recipe/abc", nil)
	if bad.Code != http.StatusNotFound {
		t.Errorf("non-numeric id status = %d, want 404", bad.Code)
	}
}

func TestFavourites(t *testing.T) {
	app := newTestApp(t, nil)

	// Anonymous access is redirected to login.
	anon := app.get("/favourites", nil)
	if anon.Code != http.StatusSeeOther || anon.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous favourites: status %d, location %q", anon.Code, anon.Header().Get("Location"))
	}

	cookies := app.signup(t, "pat@example.com", "hunter2!", "pat")

	// Save a recipe.
	add := app.post("/favourites/101", url.Values{
		"title":          {"Quick Pasta"},
		"image":          {"/p.jpg"},
		"readyInMinutes": {"12"},
	}, cookies)
	if add.Code != http.StatusSeeOther {
		t.Fatalf("add favourite status = %d", add.Code)
	}

	list := app.get("/favourites", cookies)
	if !strings.Contains(list.Body.String(), "Quick Pasta") {
		t.Error("favourites page missing saved recipe")
	}

	// Remove it again.
	favs, err := app.store.ListFavorites(context.Background(), currentUserID(t, app, cookies))
	if err != nil || len(favs) != 1 {
		t.Fatalf("ListFavorites() = %v, %v", favs, err)
	}
	remove := app.post("/favourites/remove/"+strconv.FormatInt(favs[0].ID, 10), url.Values{}, cookies)
	if remove.Code != http.StatusSeeOther {
		t.Fatalf("remove favourite status = %d", remove.Code)
	}

	empty := app.get("/favourites", cookies)
	if !strings.Contains(empty.Body.String(), "haven&#39;t saved any recipes") {
		t.Error("favourites page should show the empty state")
	}
}

func TestLoginRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	t.Cleanup(func() { limiter.Close() })

	app := newTestApp(t, limiter)

	form := url.Values{"email": {"a@x.com"}, "password": {"nope"}}
	app.post("/login", form, nil)
	app.post("/login", form, nil)

	third := app.post("/login", form, nil)
	if third.Code != http.StatusTooManyRequests {
		t.Errorf("third attempt status = %d, want 429", third.Code)
	}

	// GET routes are not limited.
	if rec := app.get("/login", nil); rec.Code != http.StatusOK {
		t.Errorf("login page status = %d", rec.Code)
	}
}

func currentUserID(t *testing.T, app *testApp, cookies []*http.Cookie) string {
	t.Helper()
	user, err := app.store.GetUserByEmail(context.Background(), "pat@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	return user.ID
}

