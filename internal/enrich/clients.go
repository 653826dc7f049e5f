package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SummarizerClient calls the external summarization service.
type SummarizerClient struct {
	BaseURL string
	client  *http.Client
}

// NewSummarizerClient creates a summarizer client with the given timeout.
func NewSummarizerClient(baseURL string, timeout time.Duration) *SummarizerClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SummarizerClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Summarize sends the text for summarization and returns the summary and
// the raw response payload.
func (c *SummarizerClient) Summarize(ctx context.Context, text string, maxLength int) (string, []byte, error) {
	body := map[string]any{
		"text":       text,
		"max_length": maxLength,
	}

	raw, err := postJSON(ctx, c.client, c.BaseURL+"/ai/summarize", body)
	if err != nil {
		return "", nil, err
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", nil, fmt.Errorf("decoding summarize response: %w", err)
	}
	if result.Summary == "" {
		return "", nil, fmt.Errorf("summarize response carried no summary")
	}

	return result.Summary, raw, nil
}

// BiasAnalysis is the distilled result of one bias-analysis call.
type BiasAnalysis struct {
	Score      float64
	Leaning    string
	Confidence float64
	Raw        []byte
}

// AnalyzerClient calls the external bias-analysis service.
type AnalyzerClient struct {
	BaseURL string
	client  *http.Client
}

// NewAnalyzerClient creates a bias-analyzer client with the given timeout.
func NewAnalyzerClient(baseURL string, timeout time.Duration) *AnalyzerClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &AnalyzerClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Analyze sends the text for political-bias analysis. The full response
// payload is preserved in Raw for storage alongside the distilled fields.
func (c *AnalyzerClient) Analyze(ctx context.Context, text string, articleID int64) (*BiasAnalysis, error) {
	body := map[string]any{
		"text":       text,
		"article_id": articleID,
	}

	raw, err := postJSON(ctx, c.client, c.BaseURL+"/analyze/full", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Political struct {
			BiasScore float64 `json:"bias_score"`
			Leaning   string  `json:"leaning"`
		} `json:"political"`
		Sentiment struct {
			Confidence float64 `json:"confidence"`
		} `json:"sentiment"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding analyze response: %w", err)
	}

	return &BiasAnalysis{
		Score:      result.Political.BiasScore,
		Leaning:    result.Political.Leaning,
		Confidence: result.Sentiment.Confidence,
		Raw:        raw,
	}, nil
}

// postJSON issues a JSON POST and returns the response body, treating
// any non-2xx status as an error.
func postJSON(ctx context.Context, client *http.Client, url string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(raw))
	}

	return raw, nil
}
