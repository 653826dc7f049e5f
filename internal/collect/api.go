package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"newswire/internal/source"
)

// APIFetcher fetches paginated JSON article listings, one endpoint per
// category. Pages are aggregated up to the caller-supplied page cap; a
// failure on any page aborts the source's fetch.
type APIFetcher struct {
	client   *http.Client
	apiKey   string
	pageSize int
	maxPages int
}

// NewAPIFetcher creates an API fetcher. The API key is read from the
// environment variable named by apiKeyEnv and sent as X-Api-Key.
func NewAPIFetcher(apiKeyEnv string, pageSize, maxPages int, timeout time.Duration) *APIFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if maxPages < 1 {
		maxPages = 1
	}
	return &APIFetcher{
		client:   &http.Client{Timeout: timeout},
		apiKey:   os.Getenv(apiKeyEnv),
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

type apiResponse struct {
	Status     string       `json:"status"`
	TotalPages int          `json:"total_pages"`
	Articles   []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"`
	Category    string `json:"category"`
}

// Fetch retrieves up to maxPages pages from the source endpoint and
// aggregates their articles. The returned FetchError carries the number
// of pages that were retrieved before the failing one.
func (f *APIFetcher) Fetch(ctx context.Context, src source.Source) ([]RawItem, error) {
	var items []RawItem

	for page := 1; page <= f.maxPages; page++ {
		resp, err := f.fetchPage(ctx, src.Endpoint, page)
		if err != nil {
			return nil, &FetchError{Source: src.Name, Pages: page - 1, Err: err}
		}

		for _, a := range resp.Articles {
			body := a.Content
			if body == "" {
				body = a.Description
			}
			category := a.Category
			if category == "" {
				category = src.Category
			}
			items = append(items, RawItem{
				Title:     a.Title,
				URL:       a.URL,
				Body:      strings.TrimSpace(body),
				ImageURL:  a.ImageURL,
				Byline:    a.Author,
				Published: a.PublishedAt,
				Category:  category,
			})
		}

		if len(resp.Articles) < f.pageSize {
			break
		}
		if resp.TotalPages > 0 && page >= resp.TotalPages {
			break
		}
	}

	return items, nil
}

func (f *APIFetcher) fetchPage(ctx context.Context, endpoint string, page int) (*apiResponse, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(f.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-Api-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %d returned HTTP %d", page, resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", page, err)
	}
	if result.Status != "" && result.Status != "ok" {
		return nil, fmt.Errorf("page %d returned status %q", page, result.Status)
	}

	return &result, nil
}
