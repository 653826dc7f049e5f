// Package normalize maps raw fetched items into the canonical article
// shape. Items that cannot be deduplicated or meaningfully stored are
// skipped, never failed: a skip is an expected outcome for malformed
// feed entries.
package normalize

import (
	"strings"
	"time"

	"newswire/internal/collect"
	"newswire/internal/database"
	"newswire/internal/source"
)

// Documented maximum field lengths. Overflow is truncated, not rejected.
const (
	MaxTitleLen    = 500
	MaxURLLen      = 1000
	MaxImageURLLen = 1000
	MaxBylineLen   = 100
)

// Source-native publish-date layouts tried in order.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Item normalizes a raw item into an article bound to the source's
// registry identifiers. A nil article with a non-empty reason means the
// item was skipped.
func Item(item collect.RawItem, src source.Source, categoryID func(name string) (int64, bool)) (*database.Article, string) {
	title := clean(item.Title, MaxTitleLen)
	if title == "" {
		return nil, "missing title"
	}

	rawURL := strings.TrimSpace(item.URL)
	body := strings.TrimSpace(item.Body)
	if rawURL == "" && body == "" {
		return nil, "missing both URL and body"
	}

	a := &database.Article{
		Title:    title,
		SourceID: src.ID,
	}

	if rawURL != "" {
		u := truncate(rawURL, MaxURLLen)
		a.CanonicalURL = &u
	}
	if body != "" {
		a.Body = &body
	}
	if img := clean(item.ImageURL, MaxImageURLLen); img != "" {
		a.ImageURL = &img
	}
	if byline := clean(item.Byline, MaxBylineLen); byline != "" {
		a.Byline = &byline
	}

	// API sources carry an explicit category hint; RSS sources fall back
	// to the single category configured for the feed.
	a.CategoryID = resolveCategory(item.Category, src, categoryID)

	if ts := parseDate(item.Published); ts != "" {
		a.PublishedAt = &ts
	}

	return a, ""
}

func resolveCategory(hint string, src source.Source, categoryID func(name string) (int64, bool)) int64 {
	if hint != "" && categoryID != nil {
		if id, ok := categoryID(strings.ToLower(strings.TrimSpace(hint))); ok {
			return id
		}
	}
	if categoryID != nil {
		if id, ok := categoryID(src.Category); ok {
			return id
		}
	}
	return 0
}

// parseDate tries the known layouts and returns an RFC 3339 timestamp,
// or "" when the date cannot be parsed. An unparseable date never fails
// the item; the article is stored without a publish date.
func parseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// clean collapses whitespace and truncates to max runes.
func clean(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, max)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
