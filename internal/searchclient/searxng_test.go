package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-deep-research/internal/types"
)

func TestHostnameBoostTrustedDomain(t *testing.T) {
	if got := HostnameBoost("https://en.wikipedia.org/wiki/Go"); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	if got := HostnameBoost("https://example.com/page"); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestPathBoostDocsVsNews(t *testing.T) {
	if got := PathBoost("https://example.com/docs/api"); got != 1.3 {
		t.Fatalf("expected 1.3, got %v", got)
	}
	if got := PathBoost("https://example.com/news/today"); got != 1.1 {
		t.Fatalf("expected 1.1, got %v", got)
	}
	if got := PathBoost("https://example.com/other"); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestSearchConvertsResultsAndAppliesBoosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := searxResponse{
			Query:           "golang",
			NumberOfResults: 1,
			Results: []searxResult{
				{Title: "Go Docs", URL: "https://go.dev/docs/tour", Content: "learn go", Engine: "test"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewSearXNGClient(srv.URL, "", 5*time.Second)
	out, err := c.Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.URLs) != 1 {
		t.Fatalf("expected 1 url, got %d", len(out.URLs))
	}
	snippet := out.URLs[0]
	if snippet.HostnameBoost != 1.5 {
		t.Fatalf("expected trusted hostname boost, got %v", snippet.HostnameBoost)
	}
	if snippet.PathBoost != 1.3 {
		t.Fatalf("expected docs path boost, got %v", snippet.PathBoost)
	}
	if snippet.FinalScore <= 1.0 {
		t.Fatalf("expected final score above baseline, got %v", snippet.FinalScore)
	}
}

func TestSearchBatchIsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(searxResponse{Query: "ok", Results: []searxResult{{Title: "t", URL: "https://example.com"}}})
	}))
	defer srv.Close()

	c := NewSearXNGClient(srv.URL, "", 5*time.Second)
	results := c.SearchBatch(context.Background(), []string{"ok", "bad"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var gotOK, gotErr bool
	for _, r := range results {
		if r.Query == "ok" && r.Err == nil {
			gotOK = true
		}
		if r.Query == "bad" && r.Err != nil {
			gotErr = true
		}
	}
	if !gotOK || !gotErr {
		t.Fatalf("expected one success and one isolated failure, got %+v", results)
	}
}

func TestRerankReturnsUnchangedWhenDisabled(t *testing.T) {
	c := NewSearXNGClient("http://unused", "", time.Second)
	in := []types.BoostedSnippet{types.NewBoostedSnippet("https://x.test", "X", "d", 1.0)}
	out := c.Rerank(context.Background(), "q", in)
	if len(out) != 1 || out[0].URL != in[0].URL {
		t.Fatalf("expected snippets unchanged, got %+v", out)
	}
}

func TestRerankUpdatesScoresOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{2.0}})
	}))
	defer srv.Close()

	c := NewSearXNGClient("http://unused", srv.URL, time.Second)
	in := []types.BoostedSnippet{types.NewBoostedSnippet("https://x.test", "X", "d", 1.0)}
	out := c.Rerank(context.Background(), "q", in)
	if out[0].RerankBoost != 2.0 {
		t.Fatalf("expected rerank boost applied, got %v", out[0].RerankBoost)
	}
	if out[0].FinalScore != in[0].FinalScore*2.0 {
		t.Fatalf("expected final score doubled, got %v vs %v", out[0].FinalScore, in[0].FinalScore)
	}
}

func TestRerankReturnsUnchangedOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSearXNGClient("http://unused", srv.URL, time.Second)
	in := []types.BoostedSnippet{types.NewBoostedSnippet("https://x.test", "X", "d", 1.0)}
	out := c.Rerank(context.Background(), "q", in)
	if out[0].RerankBoost != in[0].RerankBoost {
		t.Fatalf("expected unchanged snippet on upstream error, got %+v", out[0])
	}
}
