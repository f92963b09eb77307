package evidence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-deep-research/internal/types"
)

// EvaluationEvidence records what happened during one evaluator's pass:
// whether the prompt was built, whether the LLM was called, and the
// resulting verdict.
type EvaluationEvidence struct {
	EvalID           uuid.UUID
	EvalKind         types.EvaluationKind
	PromptGenerated  bool
	PromptLength     int
	LLMCalled        bool
	LLMLatency       time.Duration
	LLMTokensUsed    int
	ResultPassed     bool
	ResultConfidence float64
	ReasoningLength  int
	SuggestionsCount int
	Err              string
}

// NewEvaluationEvidence starts an empty evidence record for kind.
func NewEvaluationEvidence(kind types.EvaluationKind) *EvaluationEvidence {
	return &EvaluationEvidence{EvalID: uuid.New(), EvalKind: kind}
}

// RecordPromptGenerated marks that criteria/prompt construction succeeded.
func (e *EvaluationEvidence) RecordPromptGenerated(length int) {
	e.PromptGenerated = true
	e.PromptLength = length
}

// RecordLLMCall marks that the evaluator LLM was invoked.
func (e *EvaluationEvidence) RecordLLMCall(latency time.Duration, tokens int) {
	e.LLMCalled = true
	e.LLMLatency = latency
	e.LLMTokensUsed = tokens
}

// SetResult records the evaluator's verdict.
func (e *EvaluationEvidence) SetResult(passed bool, confidence float64, reasoningLength, suggestions int) {
	e.ResultPassed = passed
	e.ResultConfidence = confidence
	e.ReasoningLength = reasoningLength
	e.SuggestionsCount = suggestions
}

// SetError records that the evaluator call itself errored.
func (e *EvaluationEvidence) SetError(err string) {
	e.Err = err
}

// IsSuccess reports whether the evaluator ran without an infrastructure
// error (independent of whether its verdict passed).
func (e *EvaluationEvidence) IsSuccess() bool {
	return e.Err == ""
}

// Summary renders a one-line description of this evaluator's run.
func (e *EvaluationEvidence) Summary() string {
	status := "FAIL"
	if e.ResultPassed {
		status = "PASS"
	}
	return fmt.Sprintf("%s: %s (confidence=%.2f, tokens=%d, latency=%s)",
		e.EvalKind, status, e.ResultConfidence, e.LLMTokensUsed, e.LLMLatency)
}

// EvaluationEvidenceReport aggregates every evaluator's evidence for one
// answer's evaluation pass.
type EvaluationEvidenceReport struct {
	ExecID               uuid.UUID
	CreatedAt            time.Time
	Question            string
	AnswerLength         int
	EvaluationsRequired  []types.EvaluationKind
	EvaluationsExecuted  []*EvaluationEvidence
	FinalVerdict         bool
	TotalEvaluationTime  time.Duration
	TotalLLMTokens       int
	EarlyFailReason      string
}

// NewEvaluationEvidenceReport starts a report for one execution.
func NewEvaluationEvidenceReport(executionID uuid.UUID, question string, answerLength int) *EvaluationEvidenceReport {
	return &EvaluationEvidenceReport{
		ExecID:       executionID,
		CreatedAt:    time.Now(),
		Question:     question,
		AnswerLength: answerLength,
	}
}

// SetRequiredEvaluations records which evaluator kinds the pipeline
// determined were needed.
func (r *EvaluationEvidenceReport) SetRequiredEvaluations(kinds []types.EvaluationKind) {
	r.EvaluationsRequired = kinds
}

// AddEvaluation appends one evaluator's evidence, tracking token/latency
// totals and the first failure reason encountered.
func (r *EvaluationEvidenceReport) AddEvaluation(e *EvaluationEvidence) {
	r.TotalLLMTokens += e.LLMTokensUsed
	r.TotalEvaluationTime += e.LLMLatency

	if !e.ResultPassed && r.EarlyFailReason == "" {
		r.EarlyFailReason = fmt.Sprintf("Failed at %s evaluation", e.EvalKind)
	}
	r.EvaluationsExecuted = append(r.EvaluationsExecuted, e)
}

// Finalize computes the final verdict: every executed evaluator passed.
func (r *EvaluationEvidenceReport) Finalize() {
	r.FinalVerdict = len(r.EvaluationsExecuted) > 0
	for _, e := range r.EvaluationsExecuted {
		if !e.ResultPassed {
			r.FinalVerdict = false
			break
		}
	}
}

// SuccessRate is the fraction of executed evaluators that passed.
func (r *EvaluationEvidenceReport) SuccessRate() float64 {
	if len(r.EvaluationsExecuted) == 0 {
		return 0
	}
	passed := 0
	for _, e := range r.EvaluationsExecuted {
		if e.ResultPassed {
			passed++
		}
	}
	return float64(passed) / float64(len(r.EvaluationsExecuted))
}

// AvgConfidence is the mean confidence across executed evaluators.
func (r *EvaluationEvidenceReport) AvgConfidence() float64 {
	if len(r.EvaluationsExecuted) == 0 {
		return 0
	}
	var sum float64
	for _, e := range r.EvaluationsExecuted {
		sum += e.ResultConfidence
	}
	return sum / float64(len(r.EvaluationsExecuted))
}

// FailedEvaluations returns the subset that did not pass.
func (r *EvaluationEvidenceReport) FailedEvaluations() []*EvaluationEvidence {
	var out []*EvaluationEvidence
	for _, e := range r.EvaluationsExecuted {
		if !e.ResultPassed {
			out = append(out, e)
		}
	}
	return out
}

// ExecutionID implements Report.
func (r *EvaluationEvidenceReport) ExecutionID() uuid.UUID { return r.ExecID }

// Timestamp implements Report.
func (r *EvaluationEvidenceReport) Timestamp() time.Time { return r.CreatedAt }

// Summary implements Report.
func (r *EvaluationEvidenceReport) Summary() string {
	verdict := "REJECTED"
	if r.FinalVerdict {
		verdict = "APPROVED"
	}

	q := r.Question
	if len(q) > 50 {
		q = q[:50]
	}

	var lines []string
	lines = append(lines,
		fmt.Sprintf("EvaluationEvidenceReport [%s]", r.ExecID),
		fmt.Sprintf("Question: %s...", q),
		fmt.Sprintf("Answer Length: %d chars", r.AnswerLength),
		fmt.Sprintf("Required: %v", r.EvaluationsRequired),
		fmt.Sprintf("Executed: %d evaluations", len(r.EvaluationsExecuted)),
		fmt.Sprintf("Verdict: %s", verdict),
		fmt.Sprintf("Total Tokens: %d", r.TotalLLMTokens),
		fmt.Sprintf("Total Time: %s", r.TotalEvaluationTime),
	)
	if r.EarlyFailReason != "" {
		lines = append(lines, fmt.Sprintf("Early Fail: %s", r.EarlyFailReason))
	}
	lines = append(lines, "", "Evaluations:")
	for _, e := range r.EvaluationsExecuted {
		lines = append(lines, "  - "+e.Summary())
	}
	return strings.Join(lines, "\n")
}

// ToJSON implements Report.
func (r *EvaluationEvidenceReport) ToJSON() (json.RawMessage, error) {
	return json.Marshal(r)
}

var _ Report = (*EvaluationEvidenceReport)(nil)
