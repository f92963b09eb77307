package reference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-deep-research/internal/types"
)

// fakeEmbedder returns a fixed vector per text, keyed by a substring match
// so tests can control which chunks end up "similar" without depending on
// a real embedding model.
type fakeEmbedder struct {
	vectorFor func(text string) []float32
	alwaysErr bool
	calls     int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.alwaysErr {
		return nil, errors.New("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func vecFor(text string) []float32 {
	switch {
	case strings.Contains(text, "alpha"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "beta"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func TestBuildInsertsMarkerForMatchedChunk(t *testing.T) {
	answer := "The alpha finding is well established by prior research on the topic."
	knowledge := []types.KnowledgeItem{
		{Question: "https://example.com/a", Answer: "This page discusses the alpha finding in great depth across many paragraphs.", Kind: types.KnowledgeURL},
	}

	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10})

	if !strings.Contains(result.Answer, "[^1]") {
		t.Fatalf("expected a [^1] marker in result, got %q", result.Answer)
	}
	if len(result.References) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(result.References))
	}
	ref := result.References[0]
	if ref.URL != "https://example.com/a" {
		t.Fatalf("unexpected reference URL: %q", ref.URL)
	}
	if !ref.HasPosition {
		t.Fatal("expected HasPosition to be true")
	}
}

func TestBuildSkipsPairsBelowThreshold(t *testing.T) {
	answer := "Something about gamma topics entirely unrelated to the sources below."
	knowledge := []types.KnowledgeItem{
		{Question: "https://example.com/a", Answer: "This page discusses the alpha finding in great depth across many paragraphs.", Kind: types.KnowledgeURL},
	}

	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10})

	if strings.Contains(result.Answer, "[^") {
		t.Fatalf("expected no markers for unrelated content, got %q", result.Answer)
	}
	if len(result.References) != 0 {
		t.Fatalf("expected no references, got %d", len(result.References))
	}
}

func TestBuildFallsBackToJaccardOnEmbedFailure(t *testing.T) {
	answer := "Shared vocabulary words appear in both the answer and the source text here."
	knowledge := []types.KnowledgeItem{
		{Question: "https://example.com/a", Answer: "Shared vocabulary words appear in both the answer and the source text here.", Kind: types.KnowledgeURL},
	}

	embedder := &fakeEmbedder{vectorFor: vecFor, alwaysErr: true}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10, MinRelevanceScore: 0.5})

	if len(result.References) != 1 {
		t.Fatalf("expected jaccard fallback to find the near-identical chunk, got %d references", len(result.References))
	}
}

func TestBuildOneToOneDedup(t *testing.T) {
	answer := "alpha topic one paragraph here with enough length to be kept.\n\nalpha topic two paragraph here with enough length to be kept."
	knowledge := []types.KnowledgeItem{
		{Question: "https://example.com/a", Answer: "alpha source paragraph with enough length to be kept around here.", Kind: types.KnowledgeURL},
	}

	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10})

	if len(result.References) > 1 {
		t.Fatalf("expected at most 1 reference since only 1 web chunk exists, got %d", len(result.References))
	}
}

func TestBuildRespectsMaxReferences(t *testing.T) {
	var answerParts []string
	var knowledge []types.KnowledgeItem
	for i := 0; i < 15; i++ {
		answerParts = append(answerParts, "alpha finding number that repeats with enough length to be kept here.")
		knowledge = append(knowledge, types.KnowledgeItem{
			Question: "https://example.com/x",
			Answer:   "alpha finding number that repeats with enough length to be kept here.",
			Kind:     types.KnowledgeURL,
		})
	}
	answer := strings.Join(answerParts, "\n\n")

	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10, MaxReferences: 3})

	if len(result.References) > 3 {
		t.Fatalf("expected at most 3 references, got %d", len(result.References))
	}
}

func TestBuildEmptyAnswerReturnsUnchanged(t *testing.T) {
	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, "", nil, Options{})
	if result.Answer != "" || len(result.References) != 0 {
		t.Fatalf("expected no-op for empty answer, got %+v", result)
	}
}

func TestBuildIgnoresNonURLKnowledge(t *testing.T) {
	answer := "alpha finding discussed here with sufficient paragraph length for chunking."
	knowledge := []types.KnowledgeItem{
		{Question: "q1", Answer: "alpha finding discussed here with sufficient paragraph length for chunking.", Kind: types.KnowledgeQA},
	}

	embedder := &fakeEmbedder{vectorFor: vecFor}
	result := Build(context.Background(), embedder, answer, knowledge, Options{MinChunkLength: 10})

	if len(result.References) != 0 {
		t.Fatalf("expected QA knowledge to be ignored, got %d references", len(result.References))
	}
}
