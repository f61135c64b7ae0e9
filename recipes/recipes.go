// Package recipes defines the recipe catalogue abstraction the web
// layer searches against.
package recipes

import (
	"context"
	"errors"
)

// Common errors.
var (
	// ErrNotFound is returned when a recipe id does not exist.
	ErrNotFound = errors.New("recipe not found")

	// ErrProviderUnavailable is returned when the upstream catalogue
	// cannot be reached or rejects the request.
	ErrProviderUnavailable = errors.New("recipe provider unavailable")
)

// Step is a single numbered cooking instruction.
type Step struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name"`
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// Recipe is a recipe with full cooking detail. Search results carry
// the same shape; Ingredients is only populated by Detail.
type Recipe struct {
	ID             int          `json:"id"`
	Title          string       `json:"title"`
	Image          string       `json:"image"`
	ReadyInMinutes int          `json:"readyInMinutes"`
	Steps          []Step       `json:"steps"`
	Ingredients    []Ingredient `json:"ingredients,omitempty"`
}

// Provider searches and resolves recipes.
type Provider interface {
	// Search returns quick recipes matching the query, detail included.
	// An empty slice means no matches, not an error.
	Search(ctx context.Context, query string) ([]Recipe, error)

	// Detail returns one recipe with its full ingredient list.
	Detail(ctx context.Context, id int) (*Recipe, error)
}
