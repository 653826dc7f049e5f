package database

// Article is the canonical persisted article.
type Article struct {
	ID           int64
	Title        string
	Body         *string
	Summary      *string
	CanonicalURL *string
	ImageURL     *string
	SourceID     int64
	CategoryID   int64
	Byline       *string
	PublishedAt  *string // RFC 3339, or nil when the source date was unparseable
	CreatedAt    *string
	UpdatedAt    *string
}

// Enrichment result kinds.
const (
	KindSummary = "summary"
	KindBias    = "bias"
)

// EnrichmentResult is one recorded enrichment-service response.
// Bias rows accumulate; the summary row is replaced on each re-run.
type EnrichmentResult struct {
	ID         int64
	ArticleID  int64
	Kind       string
	Score      *float64
	Label      *string
	Confidence *float64
	RawPayload string
	CreatedAt  *string
}

// SourceRow is a persisted source registry entry.
type SourceRow struct {
	ID         int64
	Name       string
	Kind       string
	Endpoint   string
	CategoryID int64
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalArticles      int
	SummarizedArticles int
	SummaryResults     int
	BiasResults        int
	Sources            int
	Categories         int
}
