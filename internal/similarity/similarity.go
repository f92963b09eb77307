// Package similarity provides cosine similarity and top-k selection over
// float32 embedding vectors.
package similarity

import "math"

// Cosine computes the cosine similarity between two equal-length vectors.
// Returns 0 for zero-norm inputs or mismatched lengths rather than NaN.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Scored pairs a candidate index with its similarity score against a query.
type Scored struct {
	Index int
	Score float32
}

// TopK scores every candidate against query and returns the k highest-scoring
// indices, sorted by descending score. k <= 0 or k > len(candidates) returns
// all candidates sorted.
func TopK(query []float32, candidates [][]float32, k int) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Score: Cosine(query, c)}
	}

	// Insertion sort is fine here: candidate pools per step are small
	// (snippets, chunks), and stability keeps ties in original order.
	for i := 1; i < len(scored); i++ {
		j := i
		for j > 0 && scored[j-1].Score < scored[j].Score {
			scored[j-1], scored[j] = scored[j], scored[j-1]
			j--
		}
	}

	if k <= 0 || k > len(scored) {
		return scored
	}
	return scored[:k]
}
