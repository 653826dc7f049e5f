// Package crawl orchestrates one run of the ingestion pipeline: fetch,
// normalize, store, and enrich, per source, with bounded concurrency.
// One source's failure never aborts its siblings; every run ends with a
// summary of per-source counts and errors.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"newswire/internal/collect"
	"newswire/internal/config"
	"newswire/internal/database"
	"newswire/internal/enrich"
	"newswire/internal/fetch"
	"newswire/internal/normalize"
	"newswire/internal/source"
)

// Crawl scopes.
const (
	ScopeAll = "all"
	ScopeRSS = "rss"
	ScopeAPI = "api"
)

// State is the runner's lifecycle state. A run moves from idle through
// running to completed; there is no paused state and no mid-run cancellation.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// ErrRunInProgress is returned when a run is requested while another is
// still in flight. Retry is left to the next scheduled invocation.
var ErrRunInProgress = errors.New("crawl run already in progress")

// Summary is the ephemeral result of one crawl run.
type Summary struct {
	Scope        string            `json:"scope"`
	Counts       map[string]int    `json:"per_source_counts"`
	Errors       map[string]string `json:"per_source_errors"`
	TotalStored  int               `json:"total_stored"`
	Duplicates   int               `json:"duplicates"`
	SkippedItems int               `json:"skipped_items"`
	Sources      int               `json:"sources"`
	DurationMS   int64             `json:"duration_ms"`
}

// Runner executes crawl runs. At most one run is in flight at a time.
type Runner struct {
	cfg      *config.Config
	db       *database.DB
	reg      *source.Registry
	enricher *enrich.Enricher // nil disables enrichment

	mu      sync.Mutex
	state   State
	running bool
}

// NewRunner creates a crawl runner.
func NewRunner(cfg *config.Config, db *database.DB, reg *source.Registry, enricher *enrich.Enricher) *Runner {
	return &Runner{cfg: cfg, db: db, reg: reg, enricher: enricher, state: StateIdle}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run crawls every source in scope and returns the run summary. Per-source
// failures are captured in the summary; the only run-level error apart
// from an invalid scope or an in-flight run is an unavailable store.
func (r *Runner) Run(ctx context.Context, scope string, maxPages int) (*Summary, error) {
	if scope == "" {
		scope = ScopeAll
	}
	sources, err := r.sourcesForScope(scope)
	if err != nil {
		return nil, err
	}
	if err := r.begin(); err != nil {
		return nil, err
	}
	defer r.finish()

	if err := r.db.Ping(); err != nil {
		return nil, fmt.Errorf("storage unavailable: %w", err)
	}

	categories, err := r.db.GetCategories()
	if err != nil {
		return nil, fmt.Errorf("loading category registry: %w", err)
	}
	categoryID := func(name string) (int64, bool) {
		id, ok := categories[name]
		return id, ok
	}

	if maxPages < 1 {
		maxPages = r.cfg.Crawl.MaxPages
	}
	timeout := time.Duration(r.cfg.Crawl.TimeoutSeconds) * time.Second

	rssFetcher := collect.NewRSSFetcher(timeout)
	apiFetcher := collect.NewAPIFetcher(r.cfg.Sources.API.APIKeyEnv, r.cfg.Sources.API.PageSize, maxPages, timeout)

	// Fresh per-run content fetcher so domain-failure memory does not
	// leak across runs.
	var content *fetch.ContentFetcher
	if r.cfg.Crawl.FetchContent {
		content = fetch.New(r.db, timeout/2)
	}

	summary := &Summary{
		Scope:   scope,
		Counts:  make(map[string]int),
		Errors:  make(map[string]string),
		Sources: len(sources),
	}
	start := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, r.cfg.Crawl.Concurrency)

	for _, src := range sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var fetcher collect.Fetcher = rssFetcher
			if src.Kind == source.KindAPI {
				fetcher = apiFetcher
			}

			stored, dups, skipped, err := r.runSource(ctx, src, fetcher, content, categoryID)

			mu.Lock()
			defer mu.Unlock()
			summary.Counts[src.Name] = stored
			summary.TotalStored += stored
			summary.Duplicates += dups
			summary.SkippedItems += skipped
			if err != nil {
				summary.Errors[src.Name] = err.Error()
				log.Printf("source %s failed: %v", src.Name, err)
			}
		}(src)
	}
	wg.Wait()

	summary.DurationMS = time.Since(start).Milliseconds()
	log.Printf("crawl complete (%s): %d stored, %d duplicates, %d skipped, %d source errors",
		scope, summary.TotalStored, summary.Duplicates, summary.SkippedItems, len(summary.Errors))
	return summary, nil
}

// runSource executes one source's fetch, normalize, store, enrich
// pipeline. Items are processed strictly in order; the first storage
// error aborts the rest of this source's items, never its siblings.
func (r *Runner) runSource(ctx context.Context, src source.Source, fetcher collect.Fetcher, content *fetch.ContentFetcher, categoryID func(string) (int64, bool)) (stored, dups, skipped int, err error) {
	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, 0, 0, err
	}
	log.Printf("fetched %d items from %s", len(items), src.Name)

	for _, item := range items {
		article, reason := normalize.Item(item, src, categoryID)
		if article == nil {
			skipped++
			log.Printf("skipping item from %s: %s", src.Name, reason)
			continue
		}

		id, inserted, ierr := r.db.InsertArticle(article)
		if ierr != nil {
			return stored, dups, skipped, fmt.Errorf("storing %q: %w", article.Title, ierr)
		}
		if !inserted {
			dups++
			continue
		}
		stored++
		article.ID = id

		body := ""
		if article.Body != nil {
			body = *article.Body
		}
		if body == "" && content != nil {
			body = content.FillBody(ctx, article)
		}

		// Enrichment failure is logged and recorded in its outcome but
		// never unwinds an already-stored article.
		if r.enricher != nil {
			r.enricher.Enrich(ctx, id, body)
		}
	}

	return stored, dups, skipped, nil
}

func (r *Runner) sourcesForScope(scope string) ([]source.Source, error) {
	switch scope {
	case ScopeAll:
		return r.reg.All(), nil
	case ScopeRSS:
		return r.reg.OfKind(source.KindRSS), nil
	case ScopeAPI:
		return r.reg.OfKind(source.KindAPI), nil
	default:
		return nil, fmt.Errorf("unknown crawl scope %q", scope)
	}
}

func (r *Runner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	r.running = true
	r.state = StateRunning
	return nil
}

func (r *Runner) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.state = StateCompleted
}
