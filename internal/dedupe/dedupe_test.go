package dedupe

import (
	"context"
	"errors"
	"testing"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestDedupeCollapsesNearDuplicates(t *testing.T) {
	emb := fakeEmbedder{vectors: map[string][]float32{
		"golang concurrency":      {1, 0, 0},
		"go concurrency patterns": {0.99, 0.01, 0},
		"rust ownership model":    {0, 1, 0},
	}}

	d := New(emb, 0.85, 10)
	out := d.Dedupe(context.Background(), nil, []string{
		"golang concurrency",
		"go concurrency patterns",
		"rust ownership model",
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %v", len(out), out)
	}
	if out[0] != "golang concurrency" || out[1] != "rust ownership model" {
		t.Fatalf("unexpected survivors: %v", out)
	}
}

func TestDedupeNeverDropsExistingItems(t *testing.T) {
	emb := fakeEmbedder{vectors: map[string][]float32{
		"existing query": {1, 0, 0},
		"near duplicate": {0.999, 0, 0},
	}}

	d := New(emb, 0.85, 10)
	out := d.Dedupe(context.Background(), []string{"existing query"}, []string{"near duplicate"})
	if len(out) != 0 {
		t.Fatalf("expected candidate to be dropped as duplicate of existing, got %v", out)
	}
}

func TestDedupeFallsBackToExactStringMatchOnEmbedFailure(t *testing.T) {
	emb := fakeEmbedder{err: errors.New("embed service down")}

	d := New(emb, 0.85, 10)
	out := d.Dedupe(context.Background(), []string{"Hello World"}, []string{"hello world", "goodbye world"})
	if len(out) != 1 || out[0] != "goodbye world" {
		t.Fatalf("expected case-insensitive exact dedupe fallback, got %v", out)
	}
}

func TestDedupeBatchesEmbedCalls(t *testing.T) {
	calls := 0
	vectors := map[string][]float32{}
	texts := []string{"a", "b", "c", "d", "e"}
	for i, t := range texts {
		vectors[t] = []float32{float32(i), 0}
	}

	countingEmbedder := countingFakeEmbedder{fakeEmbedder: fakeEmbedder{vectors: vectors}, calls: &calls}
	d := New(countingEmbedder, 0.85, 2)
	d.Dedupe(context.Background(), nil, texts)

	if calls < 3 {
		t.Fatalf("expected embedding to be split into multiple batches, got %d calls", calls)
	}
}

type countingFakeEmbedder struct {
	fakeEmbedder
	calls *int
}

func (c countingFakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	*c.calls++
	return c.fakeEmbedder.EmbedBatch(ctx, texts)
}
