// Package reference links spans of a finished answer back to the source
// quotes that support them: chunk both sides, embed, match by cosine
// similarity, and splice footnote markers into the answer text at the
// matched spans.
package reference

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go-deep-research/internal/chunk"
	"go-deep-research/internal/similarity"
	"go-deep-research/internal/types"
)

const (
	// DefaultMinChunkLength is the shortest chunk (after trimming) kept
	// from either side of the match.
	DefaultMinChunkLength = 80
	// DefaultMinRelevanceScore is the similarity floor a pair must clear
	// to be considered a candidate reference.
	DefaultMinRelevanceScore = 0.7
	// DefaultMaxReferences caps how many references a single answer can
	// carry, regardless of how many pairs clear the relevance floor.
	DefaultMaxReferences = 10
)

// Embedder is the capability this package needs from llmclient.Client.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures Build. Zero values fall back to the package defaults.
type Options struct {
	MinChunkLength    int
	MinRelevanceScore float64
	MaxReferences     int
	// AllowedHostnames, if non-empty, restricts web chunks to URLs whose
	// host appears in this set.
	AllowedHostnames map[string]bool
}

func (o Options) withDefaults() Options {
	if o.MinChunkLength <= 0 {
		o.MinChunkLength = DefaultMinChunkLength
	}
	if o.MinRelevanceScore <= 0 {
		o.MinRelevanceScore = DefaultMinRelevanceScore
	}
	if o.MaxReferences <= 0 {
		o.MaxReferences = DefaultMaxReferences
	}
	return o
}

// webChunk tags a chunk of a URL-kind knowledge item's text with its
// source, preserving the index it held before any filtering so
// one-to-one dedup can key on (url, originalIndex).
type webChunk struct {
	chunk.Chunk
	url           string
	title         string
	originalIndex int
}

// Result is the outcome of Build: the answer with footnote markers
// inserted, and the references array in marker order.
type Result struct {
	Answer     string
	References []types.Reference
}

// Build links spans of answer to source quotes drawn from knowledge,
// inserting `[^n]` markers at the matched answer-chunk end positions. The
// result's References are ordered to match the markers left-to-right.
func Build(ctx context.Context, embedder Embedder, answer string, knowledge []types.KnowledgeItem, opts Options) Result {
	opts = opts.withDefaults()

	answerChunks := chunk.Split(answer, chunk.Options{MinLength: opts.MinChunkLength, Splitter: chunk.SplitNewline})
	if len(answerChunks) == 0 {
		return Result{Answer: answer}
	}

	webChunks := collectWebChunks(knowledge, opts)
	if len(webChunks) == 0 {
		return Result{Answer: answer}
	}

	answerVecs, webVecs, err := embedBoth(ctx, embedder, answerChunks, webChunks)
	pairs := scorePairs(answerChunks, webChunks, answerVecs, webVecs, err == nil)

	selected := selectPairs(pairs, opts.MinRelevanceScore, opts.MaxReferences)
	return insertMarkers(answer, answerChunks, webChunks, selected)
}

func collectWebChunks(knowledge []types.KnowledgeItem, opts Options) []webChunk {
	var out []webChunk
	for _, item := range knowledge {
		if item.Kind != types.KnowledgeURL {
			continue
		}
		if len(opts.AllowedHostnames) > 0 && !opts.AllowedHostnames[hostOf(item.Question)] {
			continue
		}
		chunks := chunk.Split(item.Answer, chunk.Options{MinLength: opts.MinChunkLength, Splitter: chunk.SplitNewline})
		for i, c := range chunks {
			out = append(out, webChunk{Chunk: c, url: item.Question, title: item.Question, originalIndex: i})
		}
	}
	return out
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if i := strings.IndexByte(rawURL, '/'); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL
}

func embedBoth(ctx context.Context, embedder Embedder, answerChunks []chunk.Chunk, webChunks []webChunk) ([][]float32, [][]float32, error) {
	texts := make([]string, 0, len(answerChunks)+len(webChunks))
	for _, c := range answerChunks {
		texts = append(texts, c.Text)
	}
	for _, c := range webChunks {
		texts = append(texts, c.Text)
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	return vecs[:len(answerChunks)], vecs[len(answerChunks):], nil
}

// pair is one candidate (answerChunkIdx, webChunkIdx) match.
type pair struct {
	answerIdx int
	webIdx    int
	score     float64
}

func scorePairs(answerChunks []chunk.Chunk, webChunks []webChunk, answerVecs, webVecs [][]float32, haveEmbeddings bool) []pair {
	var pairs []pair
	for ai, ac := range answerChunks {
		for wi, wc := range webChunks {
			var score float64
			if haveEmbeddings {
				score = float64(similarity.Cosine(answerVecs[ai], webVecs[wi]))
			} else {
				score = jaccard(ac.Text, wc.Text)
			}
			pairs = append(pairs, pair{answerIdx: ai, webIdx: wi, score: score})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })
	return pairs
}

// jaccard is the fallback similarity used when embed_batch fails:
// set-intersection-over-union on whitespace-tokenized text.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// selectPairs filters pairs below threshold, then greedily accepts
// highest-scoring pairs first under the one-to-one dedup constraint that
// each answer chunk and each (url, originalIndex) web chunk participates
// in at most one selected pair, stopping at max.
func selectPairs(pairs []pair, threshold float64, max int) []pair {
	usedAnswer := make(map[int]bool)
	usedWeb := make(map[int]bool)
	var selected []pair

	for _, p := range pairs {
		if p.score < threshold {
			break
		}
		if usedAnswer[p.answerIdx] || usedWeb[p.webIdx] {
			continue
		}
		usedAnswer[p.answerIdx] = true
		usedWeb[p.webIdx] = true
		selected = append(selected, p)
		if len(selected) >= max {
			break
		}
	}
	return selected
}

// insertMarkers builds the final answer with `[^n]` markers spliced at
// each selected answer chunk's end position, numbered by position order,
// and the parallel References array.
func insertMarkers(answer string, answerChunks []chunk.Chunk, webChunks []webChunk, selected []pair) Result {
	if len(selected) == 0 {
		return Result{Answer: answer}
	}

	sort.Slice(selected, func(i, j int) bool {
		return answerChunks[selected[i].answerIdx].Start < answerChunks[selected[j].answerIdx].Start
	})

	var sb strings.Builder
	cursor := 0
	refs := make([]types.Reference, 0, len(selected))

	for n, p := range selected {
		ac := answerChunks[p.answerIdx]
		wc := webChunks[p.webIdx]
		insertAt := safeInsertPoint(answer, ac.End)

		sb.WriteString(answer[cursor:insertAt])
		marker := markerText(n + 1)
		sb.WriteString(marker)
		cursor = insertAt

		refs = append(refs, types.Reference{
			URL:            wc.url,
			Title:          wc.title,
			ExactQuote:     wc.Text,
			RelevanceScore: p.score,
			AnswerChunk:    ac.Text,
			AnswerPosition: types.ByteSpan{Start: ac.Start, End: insertAt},
			HasPosition:    true,
		})
	}
	sb.WriteString(answer[cursor:])

	return Result{Answer: sb.String(), References: refs}
}

func markerText(n int) string {
	return "[^" + strconv.Itoa(n) + "]"
}

// safeInsertPoint nudges end forward past the current line if it lands
// inside a pipe-delimited table row, so markers never split a table cell.
func safeInsertPoint(text string, end int) int {
	if end >= len(text) {
		return len(text)
	}
	lineStart := strings.LastIndexByte(text[:end], '\n') + 1
	lineEnd := strings.IndexByte(text[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += end
	}
	line := text[lineStart:lineEnd]
	if strings.Contains(line, "|") && end != lineEnd {
		return lineEnd
	}
	return end
}
