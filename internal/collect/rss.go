package collect

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newswire/internal/source"
)

const maxPerFeed = 50

// RSSFetcher fetches and parses RSS/Atom feeds.
type RSSFetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewRSSFetcher creates an RSS fetcher with a per-fetch timeout.
func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RSSFetcher{parser: gofeed.NewParser(), timeout: timeout}
}

// Fetch retrieves the feed document and returns its entries as raw items.
// A document that does not parse as a feed fails the whole source; a bad
// entry inside an otherwise valid feed is passed through for the
// normalizer to reject.
func (f *RSSFetcher) Fetch(ctx context.Context, src source.Source) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(src.Endpoint, ctx)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Err: err}
	}

	var items []RawItem
	for _, item := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}
		if item == nil {
			continue
		}

		// Entries missing required fields still pass through; the
		// normalizer decides what is storable and counts the skips.
		itemURL := item.Link
		if itemURL == "" {
			itemURL = item.GUID
		}

		var published string
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.Format(time.RFC3339)
		} else {
			published = item.Published
		}

		var body string
		if item.Content != "" {
			body = stripHTML(item.Content)
		} else if item.Description != "" {
			body = stripHTML(item.Description)
		}

		var image string
		if item.Image != nil {
			image = item.Image.URL
		} else {
			for _, enc := range item.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					image = enc.URL
					break
				}
			}
		}

		var byline string
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			byline = item.Authors[0].Name
		}

		items = append(items, RawItem{
			Title:     item.Title,
			URL:       itemURL,
			Body:      body,
			ImageURL:  image,
			Byline:    byline,
			Published: published,
		})
	}

	return items, nil
}

// stripHTML removes tags and decodes common entities from feed content.
func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
