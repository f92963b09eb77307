// Package evaluate runs the multi-dimensional, early-fail evaluation
// pipeline an answer must pass before the agent completes: determine which
// evaluation categories a question calls for, then run each in canonical
// order, stopping at the first failure.
package evaluate

import (
	"context"

	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/types"
)

// MinPassConfidence is the confidence floor evaluate_sequential requires
// on top of a bare passed=true verdict.
const MinPassConfidence = 0.5

// Evaluator is the capability this package needs from llmclient.Client.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer, criteria string) (llmclient.EvaluateResult, error)
	DetermineEvalTypes(ctx context.Context, question string) ([]types.EvaluationKind, error)
}

// SequentialResult is the outcome of one evaluate_sequential run.
type SequentialResult struct {
	OverallPassed bool
	FailedAt      *types.EvaluationKind
	PerEvaluator  []types.EvaluationOutcome
}

// Pipeline wraps an Evaluator with the canonical-order, early-fail policy.
type Pipeline struct {
	llm Evaluator
}

// New builds a Pipeline over llm.
func New(llm Evaluator) *Pipeline {
	return &Pipeline{llm: llm}
}

// DetermineRequired asks the model which evaluation categories this
// question calls for, appending Strict whenever any other kind was
// selected — mirroring the original agent's determine_eval_types policy.
func (p *Pipeline) DetermineRequired(ctx context.Context, question string) ([]types.EvaluationKind, error) {
	kinds, err := p.llm.DetermineEvalTypes(ctx, question)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return kinds, nil
	}
	if !containsKind(kinds, types.EvalStrict) {
		kinds = append(kinds, types.EvalStrict)
	}
	return kinds, nil
}

// RunSequential evaluates answer against each of required, in canonical
// order, stopping at the first evaluator that does not pass. A pass
// requires both res.Passed and res.Confidence >= MinPassConfidence; an
// Evaluate error counts as a failed verdict for that evaluator with the
// error message as the reasoning, rather than aborting the whole run.
func (p *Pipeline) RunSequential(ctx context.Context, question, answer string, knowledge []types.KnowledgeItem, required []types.EvaluationKind) SequentialResult {
	ordered := canonicalSubset(required)

	var outcomes []types.EvaluationOutcome
	for _, kind := range ordered {
		criteria := buildCriteria(kind, question, knowledge)
		res, err := p.llm.Evaluate(ctx, question, answer, criteria)

		outcome := types.EvaluationOutcome{Kind: kind}
		if err != nil {
			outcome.Passed = false
			outcome.Reasoning = err.Error()
		} else {
			outcome.Passed = res.Passed && res.Confidence >= MinPassConfidence
			outcome.Reasoning = res.Reasoning
			outcome.Confidence = res.Confidence
		}
		outcomes = append(outcomes, outcome)

		if !outcome.Passed {
			failedKind := kind
			return SequentialResult{OverallPassed: false, FailedAt: &failedKind, PerEvaluator: outcomes}
		}
	}

	return SequentialResult{OverallPassed: true, PerEvaluator: outcomes}
}

// canonicalSubset filters types.CanonicalEvaluationOrder down to the kinds
// present in required, preserving canonical order regardless of the order
// required was supplied in.
func canonicalSubset(required []types.EvaluationKind) []types.EvaluationKind {
	want := make(map[types.EvaluationKind]bool, len(required))
	for _, k := range required {
		want[k] = true
	}
	var ordered []types.EvaluationKind
	for _, k := range types.CanonicalEvaluationOrder {
		if want[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}

func containsKind(kinds []types.EvaluationKind, target types.EvaluationKind) bool {
	for _, k := range kinds {
		if k == target {
			return true
		}
	}
	return false
}
