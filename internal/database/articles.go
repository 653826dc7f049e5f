package database

import (
	"database/sql"
	"errors"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// InsertArticle persists an article if no existing row shares its canonical
// URL. It returns (id, true) on insert, or (existingID, false) when a row
// with the same URL already exists. The UNIQUE constraint on canonical_url
// is the synchronization point for concurrent writers: a losing concurrent
// insert observes the constraint violation and is reclassified as a skip.
// Articles without a URL always insert; there is no dedup key for them.
func (db *DB) InsertArticle(a *Article) (int64, bool, error) {
	result, err := db.conn.Exec(
		`INSERT INTO articles (title, body, summary, canonical_url, image_url, source_id, category_id, byline, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Body, a.Summary, a.CanonicalURL, a.ImageURL, a.SourceID, a.CategoryID, a.Byline, a.PublishedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && a.CanonicalURL != nil {
			existing, ferr := db.FindArticleByURL(*a.CanonicalURL)
			if ferr != nil {
				return 0, false, ferr
			}
			if existing != nil {
				return existing.ID, false, nil
			}
		}
		return 0, false, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

const articleColumns = `id, title, body, summary, canonical_url, image_url,
	source_id, category_id, byline, published_at, created_at, updated_at`

// FindArticleByURL returns the article with the given canonical URL, or nil.
func (db *DB) FindArticleByURL(url string) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT `+articleColumns+` FROM articles WHERE canonical_url = ?`, url,
	)
	return scanArticle(row)
}

// GetArticleByID returns a single article by ID, or nil.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, articleID,
	)
	return scanArticle(row)
}

// UpdateArticleSummary overwrites the article's summary field. The summary
// is a single latest value, replaced on each successful enrichment re-run.
func (db *DB) UpdateArticleSummary(articleID int64, summary string) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET summary = ?, updated_at = datetime('now') WHERE id = ?`,
		summary, articleID,
	)
	return err
}

// UpdateArticleBody replaces the article body after a full-text fetch.
func (db *DB) UpdateArticleBody(articleID int64, body string) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET body = ?, updated_at = datetime('now') WHERE id = ?`,
		body, articleID,
	)
	return err
}

// GetRecentArticles returns the most recently collected articles.
func (db *DB) GetRecentArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// CountArticles returns the total number of stored articles.
func (db *DB) CountArticles() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Summary, &a.CanonicalURL,
			&a.ImageURL, &a.SourceID, &a.CategoryID, &a.Byline, &a.PublishedAt,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Summary, &a.CanonicalURL,
		&a.ImageURL, &a.SourceID, &a.CategoryID, &a.Byline, &a.PublishedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
