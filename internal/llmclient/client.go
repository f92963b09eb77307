// Package llmclient abstracts structured LLM operations: action decisions,
// answer generation, embeddings, evaluation, and code generation. Concrete
// adapters speak to OpenAI-, Anthropic-, or local-model-shaped HTTP APIs;
// the agent and its collaborators depend only on the Client interface.
package llmclient

import (
	"context"

	"go-deep-research/internal/types"
)

// GeneratedAnswer is the result of generate_answer.
type GeneratedAnswer struct {
	Answer            string
	References        []types.Reference
	PromptTokens      int
	CompletionTokens  int
}

// EvaluateResult is the result of a single evaluate() call.
type EvaluateResult struct {
	Passed     bool
	Reasoning  string
	Confidence float64
}

// CodeGenResult is the result of generate_code.
type CodeGenResult struct {
	Code  string
	Think string
}

// Language picks which sandbox runtime a generated snippet targets.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

// PriorAttempt records one failed sandbox attempt, fed back into the next
// generate_code call so the model can self-correct.
type PriorAttempt struct {
	Code  string
	Error string
}

// Client is the capability set every LLM provider adapter implements.
// Every method is safe for concurrent use — a single Client is shared via
// reference counting across agent, persona, dedupe, and reference-builder
// callers.
type Client interface {
	// DecideAction asks the model to choose exactly one of the actions
	// permitted by perms. Returns *Error{Kind: ErrParse} if the model's
	// output is not one of the allowed variants.
	DecideAction(ctx context.Context, prompt Prompt, perms types.ActionPermissions) (types.Action, error)

	// GenerateAnswer asks the model to produce a final answer at the given
	// temperature (clamped to [0,2] by the adapter).
	GenerateAnswer(ctx context.Context, prompt Prompt, temperature float64) (GeneratedAnswer, error)

	// Embed returns a single embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Evaluate judges answer against question using criteria as the
	// evaluator-specific rubric text.
	Evaluate(ctx context.Context, question, answer, criteria string) (EvaluateResult, error)

	// DetermineEvalTypes asks the model which evaluation categories apply
	// to question.
	DetermineEvalTypes(ctx context.Context, question string) ([]types.EvaluationKind, error)

	// GenerateCode asks the model to solve problem against the described
	// available variables, informed by prior failed attempts.
	GenerateCode(ctx context.Context, problem, availableVarsDescription string, prior []PriorAttempt, lang Language) (CodeGenResult, error)

	// TokensUsed reports total tokens spent by this client so far.
	TokensUsed() uint64
}

// Prompt is the three-part structure every LLM call assembles: a system
// instruction block, a user block, and the diary rendered as context.
type Prompt struct {
	System string
	User   string
	Diary  string
}
