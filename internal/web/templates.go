package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/nmehta6/dishcovery/recipes"
	"github.com/nmehta6/dishcovery/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// pageData is the payload handed to every page template. Fields are
// shared across pages; each page reads the ones it needs.
type pageData struct {
	User         *store.User
	ErrorMessage string
	LoggedOut    bool

	// Search results
	Query   string
	Recipes []recipes.Recipe

	// Single recipe
	Recipe *recipes.Recipe

	// Favourites
	Favourites []*store.Favorite
}

// renderer holds one parsed template set per page, each sharing the
// site layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	pageNames := []string{"index", "results", "recipe", "login", "signup", "favourites"}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &renderer{pages: pages}, nil
}

// render writes a page. Rendering failures surface as a plain 500;
// the status has usually been written by then, so this is best effort.
func (r *renderer) render(w http.ResponseWriter, status int, page string, data *pageData) {
	t, ok := r.pages[page]
	if !ok {
		log.Printf("[web] unknown page %q", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("[web] rendering %s: %v", page, err)
	}
}

// staticHandler serves the embedded assets under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The static directory is embedded at build time; a failure
		// here means a broken build.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
