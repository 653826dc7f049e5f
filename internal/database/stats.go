package database

// GetStats returns aggregate statistics for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM articles", &s.TotalArticles},
		{"SELECT COUNT(*) FROM articles WHERE summary IS NOT NULL", &s.SummarizedArticles},
		{"SELECT COUNT(*) FROM enrichment_results WHERE kind = 'summary'", &s.SummaryResults},
		{"SELECT COUNT(*) FROM enrichment_results WHERE kind = 'bias'", &s.BiasResults},
		{"SELECT COUNT(*) FROM sources", &s.Sources},
		{"SELECT COUNT(*) FROM categories", &s.Categories},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
