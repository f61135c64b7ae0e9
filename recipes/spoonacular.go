package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const spoonacularBaseURL = "https://api.spoonacular.com"

// Search defaults. The app only surfaces quick recipes, so the search
// is pinned to dishes ready within fifteen minutes.
const (
	searchResultCount = 8
	minReadyMinutes   = 1
	maxReadyMinutes   = 15
)

// SpoonacularConfig holds Spoonacular client configuration.
type SpoonacularConfig struct {
	// APIKey authenticates every request.
	APIKey string

	// BaseURL overrides the API host. Defaults to the public API.
	BaseURL string

	// HTTPClient overrides the HTTP client. Defaults to a client
	// with a 10 second timeout.
	HTTPClient *http.Client
}

// Spoonacular is a Provider backed by the Spoonacular REST API.
type Spoonacular struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSpoonacular creates a Spoonacular-backed provider.
func NewSpoonacular(cfg *SpoonacularConfig) *Spoonacular {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = spoonacularBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Spoonacular{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  client,
	}
}

// complexSearchResponse is the envelope of /recipes/complexSearch.
type complexSearchResponse struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

// informationResponse mirrors /recipes/{id}/information.
type informationResponse struct {
	ID                   int          `json:"id"`
	Title                string       `json:"title"`
	Image                string       `json:"image"`
	ReadyInMinutes       int          `json:"readyInMinutes"`
	ExtendedIngredients  []Ingredient `json:"extendedIngredients"`
	AnalyzedInstructions []struct {
		Steps []Step `json:"steps"`
	} `json:"analyzedInstructions"`
}

// toRecipe flattens the instruction blocks: only the first block's
// steps are shown, matching how the results page renders them.
func (r *informationResponse) toRecipe() *Recipe {
	var steps []Step
	if len(r.AnalyzedInstructions) > 0 {
		steps = r.AnalyzedInstructions[0].Steps
	}
	return &Recipe{
		ID:             r.ID,
		Title:          r.Title,
		Image:          r.Image,
		ReadyInMinutes: r.ReadyInMinutes,
		Steps:          steps,
		Ingredients:    r.ExtendedIngredients,
	}
}

// Search implements Provider. It runs a complexSearch and then fans
// out to fetch full detail for each hit, preserving result order.
func (s *Spoonacular) Search(ctx context.Context, query string) ([]Recipe, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(searchResultCount))
	params.Set("minReadyTime", strconv.Itoa(minReadyMinutes))
	params.Set("maxReadyTime", strconv.Itoa(maxReadyMinutes))

	var envelope complexSearchResponse
	if err := s.get(ctx, "/recipes/complexSearch", params, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Results) == 0 {
		return []Recipe{}, nil
	}

	out := make([]Recipe, len(envelope.Results))
	errs := make([]error, len(envelope.Results))

	var wg sync.WaitGroup
	for i, hit := range envelope.Results {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			detail, err := s.Detail(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = *detail
		}(i, hit.ID)
	}
	wg.Wait()

	results := out[:0]
	for i, err := range errs {
		if err != nil {
			// A hit that vanished between search and detail is
			// dropped; anything else fails the whole search.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, out[i])
	}
	return results, nil
}

// Detail implements Provider.
func (s *Spoonacular) Detail(ctx context.Context, id int) (*Recipe, error) {
	var info informationResponse
	path := fmt.Sprintf("/recipes/%d/information", id)
	if err := s.get(ctx, path, url.Values{}, &info); err != nil {
		return nil, err
	}
	return info.toRecipe(), nil
}

func (s *Spoonacular) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("apiKey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
	}
	return nil
}
