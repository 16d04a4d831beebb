package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(serverURL string) *GoogleClient {
	return &GoogleClient{
		APIKey:         "test-key",
		SearchEngineID: "test-cx",
		BaseURL:        serverURL,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("cx") != "test-cx" {
			t.Errorf("missing credentials in query: %v", q)
		}
		if q.Get("q") != "transformers" {
			t.Errorf("q = %q, want transformers", q.Get("q"))
		}
		if q.Get("num") != "5" {
			t.Errorf("num = %q, want 5", q.Get("num"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"title": "Attention Is All You Need", "snippet": "The transformer paper.", "link": "https://example.com/paper"},
				{"snippet": "Untitled hit."}
			]
		}`))
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Search(context.Background(), "transformers", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Title != "Attention Is All You Need" || results[0].URL != "https://example.com/paper" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Title != "No title" || results[1].URL != "#" {
		t.Fatalf("expected placeholder fields for sparse item: %+v", results[1])
	}
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "transformers", 5)
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	if _, err := newTestClient("http://unused").Search(context.Background(), "  ", 5); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSearchMissingCredentials(t *testing.T) {
	c := &GoogleClient{BaseURL: "http://unused", HTTPClient: http.DefaultClient}
	if _, err := c.Search(context.Background(), "transformers", 5); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}
