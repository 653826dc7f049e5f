package database

import "database/sql"

// InsertEnrichmentResult appends an enrichment result row. Bias results
// are append-only history; use ReplaceSummaryResult for summary results.
func (db *DB) InsertEnrichmentResult(r *EnrichmentResult) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO enrichment_results (article_id, kind, score, label, confidence, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ArticleID, r.Kind, r.Score, r.Label, r.Confidence, r.RawPayload,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ReplaceSummaryResult replaces the article's summary result row, keeping
// exactly one summary row per article across enrichment re-runs.
func (db *DB) ReplaceSummaryResult(r *EnrichmentResult) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM enrichment_results WHERE article_id = ? AND kind = ?`,
		r.ArticleID, KindSummary,
	); err != nil {
		return 0, err
	}

	result, err := tx.Exec(
		`INSERT INTO enrichment_results (article_id, kind, score, label, confidence, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ArticleID, KindSummary, r.Score, r.Label, r.Confidence, r.RawPayload,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetEnrichmentResults returns all enrichment results for an article,
// oldest first.
func (db *DB) GetEnrichmentResults(articleID int64) ([]EnrichmentResult, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_id, kind, score, label, confidence, raw_payload, created_at
		FROM enrichment_results WHERE article_id = ? ORDER BY id`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEnrichments(rows)
}

func scanEnrichments(rows *sql.Rows) ([]EnrichmentResult, error) {
	var results []EnrichmentResult
	for rows.Next() {
		var r EnrichmentResult
		if err := rows.Scan(&r.ID, &r.ArticleID, &r.Kind, &r.Score, &r.Label,
			&r.Confidence, &r.RawPayload, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
