// Package fetch retrieves full article text for stored articles whose
// feed entry carried no usable body, via HTTP and readability extraction.
package fetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"newswire/internal/database"
)

// minExtractedLen is the shortest extraction considered usable.
const minExtractedLen = 100

// ContentFetcher fetches article bodies with per-domain failure memory:
// once a domain fails within a fetcher's lifetime, its remaining articles
// are not attempted. Safe for use from concurrent source pipelines.
type ContentFetcher struct {
	db     *database.DB
	client *http.Client

	mu            sync.Mutex
	failedDomains map[string]struct{}
}

// New creates a content fetcher scoped to one crawl run.
func New(db *database.DB, timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// FillBody fetches and extracts the article's full text and persists it
// as the article body. Returns the extracted text, or "" when nothing
// usable could be fetched; failures are logged, never propagated.
func (f *ContentFetcher) FillBody(ctx context.Context, article *database.Article) string {
	if article.CanonicalURL == nil {
		return ""
	}
	articleURL := *article.CanonicalURL

	domain := ""
	if u, err := url.Parse(articleURL); err == nil {
		domain = strings.ToLower(u.Host)
	}

	if f.domainFailed(domain) {
		return ""
	}

	text, httpErr := f.extract(ctx, articleURL)
	if httpErr != nil {
		f.markFailed(domain)
		log.Printf("HTTP error for %s, skipping remaining from %s", articleURL, domain)
		return ""
	}
	if text == "" {
		log.Printf("no extractable content from %s", articleURL)
		return ""
	}

	if err := f.db.UpdateArticleBody(article.ID, text); err != nil {
		log.Printf("storing fetched body for article %d: %v", article.ID, err)
		return ""
	}
	return text
}

func (f *ContentFetcher) domainFailed(domain string) bool {
	if domain == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, failed := f.failedDomains[domain]
	return failed
}

func (f *ContentFetcher) markFailed(domain string) {
	if domain == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedDomains[domain] = struct{}{}
}

// extract returns the readable text of the page, "" when the page yields
// nothing usable, or an error for HTTP-level failures worth remembering.
func (f *ContentFetcher) extract(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", "newswire/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	page, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) >= minExtractedLen {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
