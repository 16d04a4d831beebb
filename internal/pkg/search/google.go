package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aicser/aicser-studio/internal/pkg/env"
)

const defaultCustomSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

// Searcher is the web search surface consumed by the assistant.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]Result, error)
}

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	APIKey         string
	SearchEngineID string
	BaseURL        string

	HTTPClient *http.Client
}

// NewGoogleClientFromEnv builds a client from GOOGLE_CUSTOM_SEARCH_API_KEY
// and GOOGLE_CUSTOM_SEARCH_ENGINE_ID.
func NewGoogleClientFromEnv() *GoogleClient {
	return &GoogleClient{
		APIKey:         strings.TrimSpace(env.GetEnv("GOOGLE_CUSTOM_SEARCH_API_KEY", "")),
		SearchEngineID: strings.TrimSpace(env.GetEnv("GOOGLE_CUSTOM_SEARCH_ENGINE_ID", "")),
		BaseURL:        strings.TrimSpace(env.GetEnv("GOOGLE_CUSTOM_SEARCH_BASE_URL", defaultCustomSearchBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type customSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs one query and returns up to num results. num is clamped to the
// API's 1..10 window.
func (c *GoogleClient) Search(ctx context.Context, query string, num int) ([]Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.New("search query is required")
	}
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.SearchEngineID) == "" {
		return nil, errors.New("GOOGLE_CUSTOM_SEARCH_API_KEY/GOOGLE_CUSTOM_SEARCH_ENGINE_ID are not configured")
	}
	if num < 1 {
		num = 5
	}
	if num > 10 {
		num = 10
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GOOGLE_CUSTOM_SEARCH_BASE_URL: %w", err)
	}
	params := u.Query()
	params.Set("key", c.APIKey)
	params.Set("cx", c.SearchEngineID)
	params.Set("q", q)
	params.Set("num", strconv.Itoa(num))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed customSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("custom search: unexpected response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("custom search: %s", msg)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := item.Title
		if title == "" {
			title = "No title"
		}
		snippet := item.Snippet
		if snippet == "" {
			snippet = "No description available"
		}
		link := item.Link
		if link == "" {
			link = "#"
		}
		results = append(results, Result{
			Title:   title,
			Snippet: snippet,
			URL:     link,
			Source:  "google-search",
		})
	}
	return results, nil
}
