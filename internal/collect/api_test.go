package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newswire/internal/source"
)

// pagedAPI serves pages of generated articles, failing on failPage (0 = never).
func pagedAPI(t *testing.T, totalPages, pageSize, failPage int) source.Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

		if failPage > 0 && page == failPage {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}

		articles := make([]apiArticle, 0, pageSize)
		if page <= totalPages {
			for i := 0; i < pageSize; i++ {
				articles = append(articles, apiArticle{
					Title:       fmt.Sprintf("Article p%d-%d", page, i),
					URL:         fmt.Sprintf("https://api.example.com/a/%d-%d", page, i),
					Description: "A short description of the article.",
					PublishedAt: "2026-08-24T10:00:00Z",
					Category:    "technology",
				})
			}
		}
		json.NewEncoder(w).Encode(apiResponse{Status: "ok", TotalPages: totalPages, Articles: articles})
	}))
	t.Cleanup(srv.Close)
	return source.Source{ID: 2, Name: "api-technology", Kind: source.KindAPI, Endpoint: srv.URL + "/v1/articles?category=technology", Category: "technology"}
}

func TestAPIFetchAggregatesPages(t *testing.T) {
	src := pagedAPI(t, 2, 3, 0)
	f := NewAPIFetcher("UNSET_TEST_KEY", 3, 5, 5*time.Second)

	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 items across 2 pages, got %d", len(items))
	}
	if items[0].Category != "technology" {
		t.Errorf("expected category hint, got %q", items[0].Category)
	}
	if items[0].Body == "" {
		t.Error("expected description to fill body")
	}
}

func TestAPIFetchRespectsMaxPages(t *testing.T) {
	src := pagedAPI(t, 10, 2, 0)
	f := NewAPIFetcher("UNSET_TEST_KEY", 2, 3, 5*time.Second)

	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 items with max-pages 3, got %d", len(items))
	}
}

func TestAPIFetchPageFailureAbortsSource(t *testing.T) {
	src := pagedAPI(t, 3, 2, 2)
	f := NewAPIFetcher("UNSET_TEST_KEY", 2, 3, 5*time.Second)

	_, err := f.Fetch(context.Background(), src)
	if err == nil {
		t.Fatal("expected error when a page fails")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.Pages != 1 {
		t.Errorf("expected 1 page fetched before failure, got %d", fe.Pages)
	}
}

func TestAPIFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Status: "error"})
	}))
	defer srv.Close()

	src := source.Source{Name: "api-bad", Kind: source.KindAPI, Endpoint: srv.URL}
	f := NewAPIFetcher("UNSET_TEST_KEY", 10, 1, 5*time.Second)
	if _, err := f.Fetch(context.Background(), src); err == nil {
		t.Fatal("expected error for non-ok payload status")
	}
}

func TestAPIFetchStopsOnShortPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(apiResponse{Status: "ok", Articles: []apiArticle{
			{Title: "Only one", URL: "https://api.example.com/only"},
		}})
	}))
	defer srv.Close()

	src := source.Source{Name: "api-short", Kind: source.KindAPI, Endpoint: srv.URL}
	f := NewAPIFetcher("UNSET_TEST_KEY", 10, 5, 5*time.Second)

	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
	if calls != 1 {
		t.Errorf("expected a short page to stop pagination, got %d calls", calls)
	}
}
