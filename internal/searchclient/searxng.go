package searchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"go-deep-research/internal/resilience"
	"go-deep-research/internal/types"
)

// SearXNGClient adapts a SearXNG instance's JSON search API to SearchClient,
// generalizing the teacher's single-shot tools.SearXNGClient with batching,
// boosting, and reranking.
type SearXNGClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *resilience.CircuitBreaker
	rerankURL  string // empty disables remote reranking; Rerank then no-ops
}

// NewSearXNGClient builds a client against baseURL (a SearXNG instance) and
// an optional rerankURL (a semantic reranker endpoint; pass "" to disable).
func NewSearXNGClient(baseURL, rerankURL string, timeout time.Duration) *SearXNGClient {
	return &SearXNGClient{
		baseURL:    baseURL,
		rerankURL:  rerankURL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         resilience.NewCircuitBreaker(5, 30*time.Second),
	}
}

type searxResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}

type searxResponse struct {
	Query           string        `json:"query"`
	NumberOfResults int           `json:"number_of_results"`
	Results         []searxResult `json:"results"`
}

// Search queries SearXNG and converts results into boosted snippets,
// applying the deterministic hostname/path heuristics before reranking.
func (c *SearXNGClient) Search(ctx context.Context, query string) (SearchOutcome, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return SearchOutcome{}, newParse(query, "invalid base URL", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	var parsed searxResponse
	err = c.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return newNetwork(query, "failed to build request", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return newNetwork(query, "search request failed", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return newRateLimited(query, "rate limited", nil)
		}
		if resp.StatusCode != http.StatusOK {
			return newUpstream(query, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
		}

		if err := json.Unmarshal(body, &parsed); err != nil {
			return newParse(query, "failed to decode response", err)
		}
		return nil
	})
	if err != nil {
		return SearchOutcome{}, err
	}

	urls := make([]types.BoostedSnippet, 0, len(parsed.Results))
	snippets := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		weight := r.Score
		if weight <= 0 {
			weight = 1.0
		}
		snippet := types.NewBoostedSnippet(r.URL, r.Title, r.Content, weight)
		snippet.HostnameBoost = HostnameBoost(r.URL)
		snippet.PathBoost = PathBoost(r.URL)
		snippet.Recompute()
		urls = append(urls, snippet)
		snippets = append(snippets, r.Content)
	}

	return SearchOutcome{URLs: urls, Snippets: snippets, Total: parsed.NumberOfResults}, nil
}

// SearchBatch runs every query concurrently; a failing query is surfaced in
// its own BatchOutcome rather than aborting the batch.
func (c *SearXNGClient) SearchBatch(ctx context.Context, queries []string) []BatchOutcome {
	results := make([]BatchOutcome, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			outcome, err := c.Search(ctx, q)
			results[i] = BatchOutcome{Query: q, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank calls the remote semantic reranker when configured, multiplying
// each snippet's rerank_boost by the returned score and recomputing
// final_score. Any failure — including rerankURL being unset — returns
// snippets unchanged per SPEC_FULL.md §4.D.
func (c *SearXNGClient) Rerank(ctx context.Context, query string, snippets []types.BoostedSnippet) []types.BoostedSnippet {
	if c.rerankURL == "" || len(snippets) == 0 {
		return snippets
	}

	docs := make([]string, len(snippets))
	for i, s := range snippets {
		docs[i] = s.Description
	}

	payload, err := json.Marshal(rerankRequest{Query: query, Documents: docs})
	if err != nil {
		return snippets
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rerankURL, bytes.NewReader(payload))
	if err != nil {
		return snippets
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return snippets
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snippets
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return snippets
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Scores) != len(snippets) {
		return snippets
	}

	out := make([]types.BoostedSnippet, len(snippets))
	for i, s := range snippets {
		s.RerankBoost = parsed.Scores[i]
		s.Recompute()
		out[i] = s
	}
	return out
}
