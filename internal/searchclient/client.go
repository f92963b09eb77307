package searchclient

import (
	"context"

	"go-deep-research/internal/types"
)

// SearchOutcome is the result of a single search(query) call.
type SearchOutcome struct {
	URLs     []types.BoostedSnippet
	Snippets []string
	Total    int
}

// BatchOutcome pairs a query with its individual result or error, so one
// failing query in search_batch never sinks the rest.
type BatchOutcome struct {
	Query   string
	Outcome SearchOutcome
	Err     error
}

// SearchClient is the capability set SPEC_FULL.md §4.D names for web search
// and reranking; reading is a separate capability in the reader package.
type SearchClient interface {
	Search(ctx context.Context, query string) (SearchOutcome, error)
	SearchBatch(ctx context.Context, queries []string) []BatchOutcome
	Rerank(ctx context.Context, query string, snippets []types.BoostedSnippet) []types.BoostedSnippet
}
