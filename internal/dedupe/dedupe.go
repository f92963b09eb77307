package dedupe

import (
	"context"
	"strings"

	"go-deep-research/internal/similarity"
)

// DefaultThreshold is the cosine-similarity cutoff above which two
// candidates are considered near-duplicates.
const DefaultThreshold = 0.85

// DefaultBatchSize bounds how many texts are embedded in one embed_batch
// call.
const DefaultBatchSize = 64

// Embedder is the capability this package needs from llmclient.Client,
// scoped down to avoid an import-cycle-prone dependency on the full
// client interface.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Deduper collapses near-duplicate queries or questions using embeddings,
// falling back to exact case-insensitive string matching when embedding
// fails.
type Deduper struct {
	embedder  Embedder
	threshold float64
	batchSize int
}

// New builds a Deduper. threshold <= 0 uses DefaultThreshold; batchSize <=
// 0 uses DefaultBatchSize.
func New(embedder Embedder, threshold float64, batchSize int) *Deduper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Deduper{embedder: embedder, threshold: threshold, batchSize: batchSize}
}

// Dedupe returns the subset of candidates that are not near-duplicates of
// an earlier item in existing++candidates (existing items are never
// dropped; only candidates are filtered), preserving candidates' relative
// order.
func (d *Deduper) Dedupe(ctx context.Context, existing, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}

	all := make([]string, 0, len(existing)+len(candidates))
	all = append(all, existing...)
	all = append(all, candidates...)

	vectors, err := d.embedBatched(ctx, all)
	if err != nil {
		return d.exactStringDedupe(existing, candidates)
	}

	kept := make([]string, 0, len(candidates))
	keptVectors := make([][]float32, 0, len(all))
	keptVectors = append(keptVectors, vectors[:len(existing)]...)

	for i, cand := range candidates {
		vec := vectors[len(existing)+i]
		if isDuplicate(vec, keptVectors, d.threshold) {
			continue
		}
		kept = append(kept, cand)
		keptVectors = append(keptVectors, vec)
	}

	return kept
}

func (d *Deduper) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += d.batchSize {
		end := start + d.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := d.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func isDuplicate(vec []float32, against [][]float32, threshold float64) bool {
	for _, other := range against {
		if float64(similarity.Cosine(vec, other)) > threshold {
			return true
		}
	}
	return false
}

func (d *Deduper) exactStringDedupe(existing, candidates []string) []string {
	seen := make(map[string]bool, len(existing)+len(candidates))
	for _, e := range existing {
		seen[strings.ToLower(strings.TrimSpace(e))] = true
	}

	kept := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		key := strings.ToLower(strings.TrimSpace(cand))
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, cand)
	}
	return kept
}
