// Package source holds the static catalog of crawl targets. The registry
// is built once from configuration at startup and never mutated afterwards,
// apart from binding database row IDs during seeding.
package source

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"newswire/internal/config"
)

// Kind distinguishes the two fetcher variants.
type Kind string

const (
	KindRSS Kind = "rss"
	KindAPI Kind = "api"
)

// Source is one configured external origin of news content.
type Source struct {
	ID       int64 // database row ID, bound during registry seeding
	Name     string
	Kind     Kind
	Endpoint string
	Category string
}

// Registry is the immutable catalog of configured sources.
type Registry struct {
	sources []Source
	byName  map[string]int
}

// FromConfig builds the registry from configuration. RSS feeds come first,
// then one API source per configured category endpoint.
func FromConfig(cfg *config.Config) *Registry {
	r := &Registry{byName: make(map[string]int)}

	for _, f := range cfg.Sources.Feeds {
		name := f.Name
		if name == "" {
			name = nameFromURL(f.URL)
		}
		category := f.Category
		if category == "" {
			category = "general"
		}
		r.add(Source{Name: name, Kind: KindRSS, Endpoint: f.URL, Category: category})
	}

	if cfg.Sources.API.Enabled {
		categories := make([]string, 0, len(cfg.Sources.API.Categories))
		for c := range cfg.Sources.API.Categories {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			r.add(Source{
				Name:     fmt.Sprintf("api-%s", c),
				Kind:     KindAPI,
				Endpoint: cfg.Sources.API.Categories[c],
				Category: c,
			})
		}
	}

	return r
}

func (r *Registry) add(s Source) {
	if _, exists := r.byName[s.Name]; exists {
		return
	}
	r.byName[s.Name] = len(r.sources)
	r.sources = append(r.sources, s)
}

// All returns every configured source.
func (r *Registry) All() []Source {
	return r.sources
}

// OfKind returns the sources of the given kind.
func (r *Registry) OfKind(kind Kind) []Source {
	var out []Source
	for _, s := range r.sources {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// ByName returns the source with the given name, or nil.
func (r *Registry) ByName(name string) *Source {
	i, ok := r.byName[name]
	if !ok {
		return nil
	}
	return &r.sources[i]
}

// Categories returns the distinct category names across all sources, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.sources {
		if _, ok := seen[s.Category]; !ok {
			seen[s.Category] = struct{}{}
			out = append(out, s.Category)
		}
	}
	sort.Strings(out)
	return out
}

// SetID binds a database row ID to the named source.
func (r *Registry) SetID(name string, id int64) {
	if i, ok := r.byName[name]; ok {
		r.sources[i].ID = id
	}
}

// nameFromURL derives a display name from a feed URL's host.
func nameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
