package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newswire/internal/config"
	"newswire/internal/database"
	"newswire/internal/source"
)

func openTestDB(t *testing.T) (*database.DB, database.SourceRow) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := source.FromConfig(&config.Config{
		Sources: config.Sources{
			Feeds: []config.Feed{{Name: "Test", URL: "https://example.com/rss", Category: "world"}},
		},
	})
	if err := db.SeedRegistry(reg); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}
	sources, _ := db.GetSources()
	return db, sources[0]
}

func insertArticle(t *testing.T, db *database.DB, src database.SourceRow, url string) *database.Article {
	t.Helper()
	id, _, err := db.InsertArticle(&database.Article{
		Title: "Test", CanonicalURL: &url, SourceID: src.ID, CategoryID: src.CategoryID,
	})
	if err != nil {
		t.Fatalf("insert article: %v", err)
	}
	a, _ := db.GetArticleByID(id)
	return a
}

const articleHTML = `<!DOCTYPE html><html><head><title>Test</title></head><body>
<article><h1>Headline</h1>
<p>` + "This is the full article text. It needs to be long enough for the readability extractor to keep it, so here is a good amount of plain prose about nothing in particular, sentence after sentence, until the threshold is comfortably cleared." + `</p>
</article></body></html>`

func TestFillBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	db, src := openTestDB(t)
	a := insertArticle(t, db, src, srv.URL+"/story")

	f := New(db, 5*time.Second)
	text := f.FillBody(context.Background(), a)
	if text == "" {
		t.Fatal("expected extracted text")
	}
	if !strings.Contains(text, "full article text") {
		t.Errorf("unexpected extraction: %q", text)
	}

	stored, _ := db.GetArticleByID(a.ID)
	if stored.Body == nil || !strings.Contains(*stored.Body, "full article text") {
		t.Error("expected body persisted")
	}
}

func TestFillBodyRemembersFailedDomain(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	db, src := openTestDB(t)
	a1 := insertArticle(t, db, src, srv.URL+"/one")
	a2 := insertArticle(t, db, src, srv.URL+"/two")

	f := New(db, 5*time.Second)
	if text := f.FillBody(context.Background(), a1); text != "" {
		t.Error("expected empty result for HTTP 403")
	}
	if text := f.FillBody(context.Background(), a2); text != "" {
		t.Error("expected empty result for remembered failed domain")
	}
	if calls != 1 {
		t.Errorf("expected 1 request to the failed domain, got %d", calls)
	}
}

func TestFillBodyNoURL(t *testing.T) {
	db, _ := openTestDB(t)
	f := New(db, 5*time.Second)
	if text := f.FillBody(context.Background(), &database.Article{ID: 1}); text != "" {
		t.Error("expected empty result for URL-less article")
	}
}
