package sandbox

import (
	"context"
	"errors"
	"testing"

	"go-deep-research/internal/llmclient"
)

type fakeGenerator struct {
	codes []string
	errs  []error
	calls int
}

func (f *fakeGenerator) GenerateCode(ctx context.Context, problem, vars string, prior []llmclient.PriorAttempt, lang llmclient.Language) (llmclient.CodeGenResult, error) {
	i := f.calls
	f.calls++
	if i >= len(f.codes) {
		i = len(f.codes) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return llmclient.CodeGenResult{Code: f.codes[i]}, err
}

func TestSolveSucceedsOnFirstAttempt(t *testing.T) {
	sb := New(NewContext(), 3, DefaultLimits())
	gen := &fakeGenerator{codes: []string{"return 42;"}}

	result := sb.Solve(context.Background(), gen, "json parse something")

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
	if result.Output != "42" {
		t.Fatalf("expected output 42, got %q", result.Output)
	}
}

func TestSolveRetriesThenSucceeds(t *testing.T) {
	sb := New(NewContext(), 3, DefaultLimits())
	gen := &fakeGenerator{codes: []string{
		"this is not valid javascript {{{",
		"return 'ok';",
	}}

	result := sb.Solve(context.Background(), gen, "parse html for json")

	if !result.Success {
		t.Fatalf("expected eventual success, got error %q", result.Error)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestSolveExhaustsMaxAttempts(t *testing.T) {
	sb := New(NewContext(), 2, DefaultLimits())
	gen := &fakeGenerator{codes: []string{
		"not valid js {{{",
		"still not valid js {{{",
	}}

	result := sb.Solve(context.Background(), gen, "fetch some json")

	if result.Success {
		t.Fatal("expected failure after exhausting attempts")
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts recorded, got %d", result.Attempts)
	}
	if result.Error == "" {
		t.Fatal("expected a populated error message")
	}
}

func TestSolveRecordsGenerationErrorsAsAttempts(t *testing.T) {
	sb := New(NewContext(), 2, DefaultLimits())
	gen := &fakeGenerator{
		codes: []string{"", "return 1;"},
		errs:  []error{errors.New("upstream unavailable")},
	}

	result := sb.Solve(context.Background(), gen, "fetch json")

	if !result.Success {
		t.Fatalf("expected success on second attempt, got error %q", result.Error)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestPickLanguageHeuristics(t *testing.T) {
	if lang := PickLanguage("parse this JSON blob"); lang != llmclient.LanguageJavaScript {
		t.Fatalf("expected javascript for json-shaped problem, got %s", lang)
	}
	if lang := PickLanguage("compute the average of these numbers"); lang != llmclient.LanguagePython {
		t.Fatalf("expected python default, got %s", lang)
	}
}
