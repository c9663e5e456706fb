package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
)

// SymptomRef is the nested symptom wrapper used by the recipe service.
type SymptomRef struct {
	Symptom struct {
		Title string `json:"title"`
	} `json:"symptom"`
}

// Record is a single recipe as returned by the recipe service.
type Record struct {
	ID      recipe.ID    `json:"id"`
	Title   string       `json:"title"`
	Symptom []SymptomRef `json:"symptom"`
}

// Recipe flattens the record, keeping symptom order and duplicates.
func (r Record) Recipe() recipe.Recipe {
	symptoms := make([]string, 0, len(r.Symptom))
	for _, s := range r.Symptom {
		symptoms = append(symptoms, cleanText(s.Symptom.Title))
	}
	return recipe.Recipe{
		ID:       r.ID,
		Title:    cleanText(r.Title),
		Symptoms: symptoms,
	}
}

// Client is an interface for the recipe service.
type Client interface {
	FetchRecipes(ctx context.Context) ([]Record, error)
}

type httpClient struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
}

// NewClient creates a new recipe service client.
func NewClient(cfg *config.Config) Client {
	return &httpClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.RecipeSourceURL,
		pageSize:   cfg.RecipePageSize,
	}
}

// FetchRecipes fetches a single page of recipes. The service is expected to
// return the whole catalogue in one page.
func (c *httpClient) FetchRecipes(ctx context.Context) ([]Record, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid recipe source url: %w", err)
	}
	q := u.Query()
	q.Set("rpp", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't reach the recipe database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("can't reach the recipe database: status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// cleanText strips markup and entities the CMS leaves in titles.
func cleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
