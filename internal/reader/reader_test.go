package reader

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStrategy struct {
	outcome ReadOutcome
	err     error
	delay   time.Duration
}

func (f fakeStrategy) Read(ctx context.Context, url string) (ReadOutcome, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.outcome, f.err
}

func TestReadURLPrefersLocalWhenSufficient(t *testing.T) {
	local := fakeStrategy{outcome: ReadOutcome{Text: longText(200), Source: SourceLocal}}
	remote := fakeStrategy{err: errors.New("should not be called")}

	r := NewReader(local, remote, nil)
	out, err := r.ReadURL(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != SourceLocal {
		t.Fatalf("expected local source, got %s", out.Source)
	}
}

func TestReadURLFallsBackToRemoteWhenLocalTooShort(t *testing.T) {
	local := fakeStrategy{outcome: ReadOutcome{Text: "short", Source: SourceLocal}}
	remote := fakeStrategy{outcome: ReadOutcome{Text: longText(200), Source: SourceRemote}}

	r := NewReader(local, remote, nil)
	out, err := r.ReadURL(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != SourceRemote {
		t.Fatalf("expected remote fallback, got %s", out.Source)
	}
}

func TestReadURLFallsBackOnLocalError(t *testing.T) {
	local := fakeStrategy{err: errors.New("fetch failed")}
	remote := fakeStrategy{outcome: ReadOutcome{Text: longText(200), Source: SourceRemote}}

	r := NewReader(local, remote, nil)
	out, err := r.ReadURL(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != SourceRemote {
		t.Fatalf("expected remote fallback, got %s", out.Source)
	}
}

func TestReadURLReturnsExtractionErrorWhenBothFail(t *testing.T) {
	local := fakeStrategy{err: errors.New("local down")}
	remote := fakeStrategy{err: errors.New("remote down")}

	r := NewReader(local, remote, nil)
	_, err := r.ReadURL(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("expected extraction error")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
}

func TestReadURLsBatchIsolatesFailures(t *testing.T) {
	local := fakeStrategy{outcome: ReadOutcome{Text: longText(200)}}
	remote := fakeStrategy{err: errors.New("down")}

	r := NewReader(local, remote, nil)
	results := r.ReadURLsBatch(context.Background(), []string{"a", "b"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("unexpected error in batch result: %v", res.Err)
		}
	}
}

func TestReadURLComparativeReportsWinner(t *testing.T) {
	local := fakeStrategy{outcome: ReadOutcome{Text: longText(200)}, delay: 150 * time.Millisecond}
	remote := fakeStrategy{outcome: ReadOutcome{Text: longText(200)}}

	r := NewReader(local, remote, nil)
	out := r.ReadURLComparative(context.Background(), "https://example.com")
	if out.Winner != WinnerRemote {
		t.Fatalf("expected remote to win when local is slower by >100ms, got %s", out.Winner)
	}
}

func TestReadURLComparativeTieWithinMargin(t *testing.T) {
	local := fakeStrategy{outcome: ReadOutcome{Text: longText(200)}}
	remote := fakeStrategy{outcome: ReadOutcome{Text: longText(200)}}

	r := NewReader(local, remote, nil)
	out := r.ReadURLComparative(context.Background(), "https://example.com")
	if out.Winner != WinnerTie {
		t.Fatalf("expected tie, got %s", out.Winner)
	}
}

func TestLooksLikePDF(t *testing.T) {
	if !looksLikePDF("https://example.com/doc.pdf") {
		t.Fatal("expected .pdf suffix to be detected")
	}
	if !looksLikePDF("https://example.com/doc.pdf?download=1") {
		t.Fatal("expected .pdf with query string to be detected")
	}
	if looksLikePDF("https://example.com/doc.html") {
		t.Fatal("expected non-pdf to be rejected")
	}
}

func longText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
