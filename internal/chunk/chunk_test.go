package chunk

import "testing"

func TestSplitNewlineRoundTrip(t *testing.T) {
	text := "para one line one\npara one line two\n\n\npara two\n"
	chunks := Split(text, Options{MinLength: 0, Splitter: SplitNewline})

	for _, c := range chunks {
		if text[c.Start:c.End] != c.Text {
			t.Fatalf("position mismatch: chunk %q at [%d:%d] = %q", c.Text, c.Start, c.End, text[c.Start:c.End])
		}
	}
}

func TestSplitNewlineNoEmptyChunksFromBlankRuns(t *testing.T) {
	text := "first\n\n\n\n\nsecond"
	chunks := Split(text, Options{Splitter: SplitNewline})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "first" || chunks[1].Text != "second" {
		t.Fatalf("unexpected chunk text: %+v", chunks)
	}
}

func TestSplitDiscardsShortFragments(t *testing.T) {
	text := "ab\n\nlong enough paragraph here"
	chunks := Split(text, Options{MinLength: 10, Splitter: SplitNewline})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk after discarding short fragment, got %d", len(chunks))
	}
}

func TestSplitSentence(t *testing.T) {
	text := "First sentence. Second sentence! Third?"
	chunks := Split(text, Options{Splitter: SplitSentence})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 sentence chunks, got %d: %+v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if text[c.Start:c.End] != c.Text {
			t.Fatalf("position mismatch for sentence chunk %q", c.Text)
		}
	}
}

func TestSplitFixed(t *testing.T) {
	text := "0123456789abcdef"
	chunks := Split(text, Options{Splitter: SplitFixed, FixedSize: 4})
	if len(chunks) != 4 {
		t.Fatalf("expected 4 fixed chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if text[c.Start:c.End] != c.Text {
			t.Fatalf("position mismatch for fixed chunk %q", c.Text)
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks := Split("", Options{Splitter: SplitNewline})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}
