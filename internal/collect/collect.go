// Package collect fetches raw items from external sources. Each source
// kind has its own fetcher variant behind the common Fetcher interface;
// fetchers do network I/O only and never touch the database.
package collect

import (
	"context"
	"fmt"

	"newswire/internal/source"
)

// RawItem is the transient, source-native representation of one article.
// It exists only within a single fetch-normalize cycle.
type RawItem struct {
	Title     string
	URL       string
	Body      string
	ImageURL  string
	Byline    string
	Published string // source-native timestamp text, may be empty
	Category  string // explicit category hint from API sources
}

// Fetcher retrieves raw items from one external source.
type Fetcher interface {
	Fetch(ctx context.Context, src source.Source) ([]RawItem, error)
}

// FetchError is a per-source fetch failure: network error, timeout, or a
// payload that does not parse. Pages records how many API pages were
// retrieved before the failure (0 for RSS sources).
type FetchError struct {
	Source string
	Pages  int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Pages > 0 {
		return fmt.Sprintf("fetching %s after %d page(s): %v", e.Source, e.Pages, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
