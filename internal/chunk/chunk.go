// Package chunk splits text into positioned chunks for embedding and
// reference building.
package chunk

import "strings"

// Splitter selects how text is divided into candidate chunks.
type Splitter int

const (
	// SplitNewline breaks at every newline (line boundaries). Default.
	SplitNewline Splitter = iota
	// SplitSentence breaks on sentence-ending punctuation.
	SplitSentence
	// SplitFixed breaks text into fixed-size byte windows (Options.FixedSize).
	SplitFixed
)

// Chunk is a slice of the original text with its half-open byte span.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// Options configures the chunker.
type Options struct {
	MinLength int
	Splitter  Splitter
	// FixedSize is the window size in bytes, used only when Splitter == SplitFixed.
	FixedSize int
}

// Split divides text into chunks per opts, discarding fragments shorter
// than MinLength after trimming. Every returned chunk satisfies
// text[c.Start:c.End] == c.Text.
func Split(text string, opts Options) []Chunk {
	if opts.MinLength < 0 {
		opts.MinLength = 0
	}

	var raw []Chunk
	switch opts.Splitter {
	case SplitFixed:
		size := opts.FixedSize
		if size <= 0 {
			size = 500
		}
		raw = splitFixed(text, size)
	case SplitSentence:
		raw = splitSentence(text)
	default:
		raw = splitNewline(text)
	}

	out := make([]Chunk, 0, len(raw))
	for _, c := range raw {
		if len(strings.TrimSpace(c.Text)) < opts.MinLength {
			continue
		}
		out = append(out, c)
	}
	return out
}

// splitNewline breaks text at each newline, never emitting empty chunks
// for consecutive newlines.
func splitNewline(text string) []Chunk {
	var chunks []Chunk
	start := 0
	i := 0
	n := len(text)

	flush := func(end int) {
		if end > start {
			chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})
		}
		start = end
	}

	for i < n {
		if text[i] == '\n' {
			j := i
			for j < n && (text[j] == '\n' || text[j] == '\r') {
				j++
			}
			flush(i)
			start = j
			i = j
			continue
		}
		i++
	}
	flush(n)

	return chunks
}

// splitSentence breaks text after '.', '!', or '?' followed by whitespace
// or end of string.
func splitSentence(text string) []Chunk {
	var chunks []Chunk
	start := 0
	n := len(text)

	for i := 0; i < n; i++ {
		c := text[i]
		if c == '.' || c == '!' || c == '?' {
			end := i + 1
			if end == n || text[end] == ' ' || text[end] == '\n' || text[end] == '\t' {
				if end > start {
					chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})
				}
				start = end
			}
		}
	}
	if start < n {
		chunks = append(chunks, Chunk{Text: text[start:n], Start: start, End: n})
	}
	return chunks
}

// splitFixed breaks text into chunks of exactly size bytes, except the
// final chunk which may be shorter.
func splitFixed(text string, size int) []Chunk {
	var chunks []Chunk
	n := len(text)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})
	}
	return chunks
}
