package database

import (
	"path/filepath"
	"sync"
	"testing"

	"newswire/internal/config"
	"newswire/internal/source"
)

// openTestDB opens a fresh database seeded with one RSS source in one
// category and returns the persisted source row for article foreign keys.
func openTestDB(t *testing.T) (*DB, SourceRow) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := source.FromConfig(&config.Config{
		Sources: config.Sources{
			Feeds: []config.Feed{
				{Name: "Test Feed", URL: "https://example.com/rss", Category: "world"},
			},
		},
	})
	if err := db.SeedRegistry(reg); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}

	sources, err := db.GetSources()
	if err != nil || len(sources) != 1 {
		t.Fatalf("failed to read seeded source: %v", err)
	}
	return db, sources[0]
}

func ptr(s string) *string { return &s }

func testArticle(src SourceRow, title string, url *string) *Article {
	return &Article{
		Title:        title,
		CanonicalURL: url,
		SourceID:     src.ID,
		CategoryID:   src.CategoryID,
	}
}

func TestInsertArticle(t *testing.T) {
	db, src := openTestDB(t)
	id, inserted, err := db.InsertArticle(testArticle(src, "Test Article", ptr("https://example.com/a")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Error("expected article to be inserted")
	}
	if id == 0 {
		t.Error("expected non-zero article ID")
	}
}

func TestInsertDuplicateURL(t *testing.T) {
	db, src := openTestDB(t)
	first, _, err := db.InsertArticle(testArticle(src, "First", ptr("https://example.com/dup")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, inserted, err := db.InsertArticle(testArticle(src, "Duplicate", ptr("https://example.com/dup")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected duplicate to be skipped")
	}
	if id != first {
		t.Errorf("expected existing ID %d, got %d", first, id)
	}

	n, _ := db.CountArticles()
	if n != 1 {
		t.Errorf("expected 1 article, got %d", n)
	}
}

func TestURLLessArticlesBypassDedup(t *testing.T) {
	db, src := openTestDB(t)
	_, ins1, err := db.InsertArticle(testArticle(src, "No URL", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ins2, err := db.InsertArticle(testArticle(src, "No URL", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ins1 || !ins2 {
		t.Error("expected both URL-less articles to insert")
	}

	n, _ := db.CountArticles()
	if n != 2 {
		t.Errorf("expected 2 articles, got %d", n)
	}
}

func TestConcurrentDedup(t *testing.T) {
	db, src := openTestDB(t)

	const writers = 2
	insertedCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, inserted, err := db.InsertArticle(testArticle(src, "Race", ptr("https://example.com/race")))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			if inserted {
				insertedCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if insertedCount != 1 {
		t.Errorf("expected exactly 1 insert, got %d", insertedCount)
	}
	n, _ := db.CountArticles()
	if n != 1 {
		t.Errorf("expected 1 article, got %d", n)
	}
}

func TestFindArticleByURL(t *testing.T) {
	db, src := openTestDB(t)
	id, _, _ := db.InsertArticle(testArticle(src, "Findable", ptr("https://example.com/find")))

	found, err := db.FindArticleByURL("https://example.com/find")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil || found.ID != id {
		t.Error("expected to find article by URL")
	}

	missing, err := db.FindArticleByURL("https://example.com/other")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown URL")
	}
}

func TestUpdateArticleSummary(t *testing.T) {
	db, src := openTestDB(t)
	id, _, _ := db.InsertArticle(testArticle(src, "Test", ptr("https://example.com/s")))

	if err := db.UpdateArticleSummary(id, "First summary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.UpdateArticleSummary(id, "Second summary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := db.GetArticleByID(id)
	if a.Summary == nil || *a.Summary != "Second summary" {
		t.Error("expected summary to be overwritten with latest value")
	}
}

func TestUpdateArticleBody(t *testing.T) {
	db, src := openTestDB(t)
	id, _, _ := db.InsertArticle(testArticle(src, "Test", ptr("https://example.com/b")))

	if err := db.UpdateArticleBody(id, "Full article text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := db.GetArticleByID(id)
	if a.Body == nil || *a.Body != "Full article text" {
		t.Error("expected body to be updated")
	}
}

func TestBiasResultsAppend(t *testing.T) {
	db, src := openTestDB(t)
	id, _, _ := db.InsertArticle(testArticle(src, "Test", ptr("https://example.com/bias")))

	score := 0.4
	label := "center"
	conf := 0.9
	for i := 0; i < 2; i++ {
		if _, err := db.InsertEnrichmentResult(&EnrichmentResult{
			ArticleID: id, Kind: KindBias, Score: &score, Label: &label,
			Confidence: &conf, RawPayload: `{"political":{"bias_score":0.4}}`,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	results, err := db.GetEnrichmentResults(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 bias rows, got %d", len(results))
	}
	if results[0].Kind != KindBias || results[0].Score == nil || *results[0].Score != 0.4 {
		t.Error("unexpected bias row content")
	}
}

func TestSummaryResultReplaced(t *testing.T) {
	db, src := openTestDB(t)
	id, _, _ := db.InsertArticle(testArticle(src, "Test", ptr("https://example.com/sum")))

	for i := 0; i < 3; i++ {
		if _, err := db.ReplaceSummaryResult(&EnrichmentResult{
			ArticleID: id, RawPayload: `{"summary":"text"}`,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	results, _ := db.GetEnrichmentResults(id)
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 summary row, got %d", len(results))
	}
	if results[0].Kind != KindSummary {
		t.Errorf("expected kind 'summary', got %q", results[0].Kind)
	}
}

func TestSeedRegistryIdempotent(t *testing.T) {
	db, _ := openTestDB(t)

	reg := source.FromConfig(&config.Config{
		Sources: config.Sources{
			Feeds: []config.Feed{
				{Name: "Test Feed", URL: "https://example.com/rss-v2", Category: "world"},
			},
		},
	})
	if err := db.SeedRegistry(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sources, _ := db.GetSources()
	if len(sources) != 1 {
		t.Fatalf("expected 1 source row after reseed, got %d", len(sources))
	}
	if sources[0].Endpoint != "https://example.com/rss-v2" {
		t.Errorf("expected endpoint updated on reseed, got %q", sources[0].Endpoint)
	}
}

func TestGetStats(t *testing.T) {
	db, src := openTestDB(t)
	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalArticles != 0 {
		t.Errorf("expected 0 articles, got %d", stats.TotalArticles)
	}
	if stats.Sources != 1 {
		t.Errorf("expected 1 source, got %d", stats.Sources)
	}

	id, _, _ := db.InsertArticle(testArticle(src, "A", ptr("https://example.com/1")))
	db.UpdateArticleSummary(id, "Summary")
	db.InsertEnrichmentResult(&EnrichmentResult{ArticleID: id, Kind: KindBias, RawPayload: "{}"})

	stats, _ = db.GetStats()
	if stats.TotalArticles != 1 {
		t.Errorf("expected 1 article, got %d", stats.TotalArticles)
	}
	if stats.SummarizedArticles != 1 {
		t.Errorf("expected 1 summarized article, got %d", stats.SummarizedArticles)
	}
	if stats.BiasResults != 1 {
		t.Errorf("expected 1 bias result, got %d", stats.BiasResults)
	}
}
