// Package enrich orchestrates post-ingestion AI analysis: summarization
// and political-bias scoring by separate external services. The two calls
// are independent; one failing never blocks the other, and no enrichment
// failure ever propagates to the ingestion that triggered it.
package enrich

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"newswire/internal/config"
	"newswire/internal/database"
)

// Status classifies one enrichment sub-result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// SubResult is the outcome of a single enrichment call.
type SubResult struct {
	Status Status
	Reason string // set for skips
	Err    error  // set for failures
}

// Outcome holds the two independent sub-results of one enrichment run.
type Outcome struct {
	ArticleID int64
	Summary   SubResult
	Bias      SubResult
}

// Enricher coordinates the summarization and bias-analysis services and
// persists whichever results succeed.
type Enricher struct {
	db            *database.DB
	summarizer    *SummarizerClient
	analyzer      *AnalyzerClient
	minBodyChars  int
	summaryMaxLen int
	timeout       time.Duration
}

// New creates an enricher from configuration.
func New(cfg config.Enrichment, db *database.DB) *Enricher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Enricher{
		db:            db,
		summarizer:    NewSummarizerClient(cfg.SummarizerURL, timeout),
		analyzer:      NewAnalyzerClient(cfg.AnalyzerURL, timeout),
		minBodyChars:  cfg.MinBodyChars,
		summaryMaxLen: cfg.SummaryMaxLength,
		timeout:       timeout,
	}
}

// Enrich runs both analyses for a newly stored article. Short bodies
// carry insufficient signal, so below the configured minimum both calls
// are skipped without contacting either service.
func (e *Enricher) Enrich(ctx context.Context, articleID int64, body string) *Outcome {
	out := &Outcome{ArticleID: articleID}

	text := strings.TrimSpace(body)
	if len(text) < e.minBodyChars {
		skip := SubResult{Status: StatusSkipped, Reason: "body below minimum length"}
		out.Summary = skip
		out.Bias = skip
		return out
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Summary = e.runSummary(ctx, articleID, text)
	}()
	go func() {
		defer wg.Done()
		out.Bias = e.runBias(ctx, articleID, text)
	}()
	wg.Wait()

	return out
}

// runSummary calls the summarizer and, on success, overwrites the
// article's summary field and replaces its summary result row.
func (e *Enricher) runSummary(ctx context.Context, articleID int64, text string) SubResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	summary, raw, err := e.summarizer.Summarize(ctx, text, e.summaryMaxLen)
	if err != nil {
		log.Printf("summarize failed for article %d: %v", articleID, err)
		return SubResult{Status: StatusFailed, Err: err}
	}

	if err := e.db.UpdateArticleSummary(articleID, summary); err != nil {
		log.Printf("storing summary for article %d: %v", articleID, err)
		return SubResult{Status: StatusFailed, Err: err}
	}
	if _, err := e.db.ReplaceSummaryResult(&database.EnrichmentResult{
		ArticleID:  articleID,
		RawPayload: string(raw),
	}); err != nil {
		log.Printf("recording summary result for article %d: %v", articleID, err)
		return SubResult{Status: StatusFailed, Err: err}
	}

	return SubResult{Status: StatusSuccess}
}

// runBias calls the bias analyzer and, on success, appends a bias result
// row. Bias history is append-only, unlike the overwritten summary.
func (e *Enricher) runBias(ctx context.Context, articleID int64, text string) SubResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	analysis, err := e.analyzer.Analyze(ctx, text, articleID)
	if err != nil {
		log.Printf("bias analysis failed for article %d: %v", articleID, err)
		return SubResult{Status: StatusFailed, Err: err}
	}

	result := &database.EnrichmentResult{
		ArticleID:  articleID,
		Kind:       database.KindBias,
		Score:      &analysis.Score,
		Confidence: &analysis.Confidence,
		RawPayload: string(analysis.Raw),
	}
	if analysis.Leaning != "" {
		result.Label = &analysis.Leaning
	}
	if _, err := e.db.InsertEnrichmentResult(result); err != nil {
		log.Printf("recording bias result for article %d: %v", articleID, err)
		return SubResult{Status: StatusFailed, Err: err}
	}

	return SubResult{Status: StatusSuccess}
}
