// Package agent runs the step loop that drives one research execution
// from a question to a finished, referenced answer: deciding an action
// each step, dispatching it against search, reading, reflection, coding,
// or the user, and tracking state through the legal transitions defined
// in internal/types.
package agent

import (
	"context"
	"log"
	"sync"
	"time"

	"go-deep-research/internal/cache"
	"go-deep-research/internal/dedupe"
	"go-deep-research/internal/evaluate"
	"go-deep-research/internal/interaction"
	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/metrics"
	"go-deep-research/internal/persona"
	"go-deep-research/internal/reader"
	"go-deep-research/internal/reference"
	"go-deep-research/internal/sandbox"
	"go-deep-research/internal/searchclient"
	"go-deep-research/internal/types"
)

// MaxURLsPerStepCeiling is the hard loop ceiling on how many URLs a
// single Read action may consume. RESEARCH_AGENT_MAX_URLS_PER_STEP can lower this
// but never raise it — see Config.MaxURLsPerStep.
const MaxURLsPerStepCeiling = 5

// Config bounds the step loop's policy knobs. Every field has a sane
// default via DefaultConfig.
type Config struct {
	MinStepsBeforeAnswer   int
	AllowDirectAnswer      bool
	MaxConsecutiveFailures int
	BeastModeBudgetFrac    float64
	MaxQueriesPerStep      int
	MaxURLsPerStep         int
	MaxReflectPerStep      int
	BeastMaxAttempts       int
	DedupThreshold         float64
	DedupBatchSize         int
}

// DefaultConfig returns the step loop's default policy.
func DefaultConfig() Config {
	return Config{
		MinStepsBeforeAnswer:   1,
		AllowDirectAnswer:      false,
		MaxConsecutiveFailures: 3,
		BeastModeBudgetFrac:    0.85,
		MaxQueriesPerStep:      5,
		MaxURLsPerStep:         MaxURLsPerStepCeiling,
		MaxReflectPerStep:      3,
		BeastMaxAttempts:       3,
		DedupThreshold:         0.85,
		DedupBatchSize:         32,
	}
}

// clampURLsPerStep enforces the pinned MAX_URLS_PER_STEP ceiling: config
// may only lower it, never raise it past 5.
func clampURLsPerStep(n int) int {
	if n <= 0 || n > MaxURLsPerStepCeiling {
		return MaxURLsPerStepCeiling
	}
	return n
}

// IntegrationExecutor is the bridge a real booking/messaging backend
// would implement. The default wiring treats every integration action as
// a diary-only no-op, so the zero value of this interface being nil is
// expected and handled.
type IntegrationExecutor interface {
	Execute(ctx context.Context, name string, params map[string]string) (string, error)
}

// Dependencies bundles every collaborator the loop dispatches work to.
// Metrics and Cache and an IntegrationExecutor are optional (nil is
// valid); everything else is required.
type Dependencies struct {
	LLM         llmclient.Client
	Search      searchclient.SearchClient
	Reader      *reader.Reader
	Personas    *persona.Registry
	Dedupe      *dedupe.Deduper
	Evaluator   *evaluate.Pipeline
	RefEmbedder reference.Embedder
	Hub         *interaction.Hub
	Tracker     *types.TokenTracker

	Metrics     *metrics.Recorder
	Cache       *cache.Cache[searchclient.SearchOutcome]
	Integration IntegrationExecutor

	SandboxLimits sandbox.Limits
}

// Agent runs the step loop for one research execution.
type Agent struct {
	deps   Dependencies
	config Config

	mu    sync.Mutex
	state types.AgentState

	knowledge     []types.KnowledgeItem
	diary         []types.DiaryEntry
	collectedURLs []types.BoostedSnippet
	visitedURLs   map[string]bool
	badURLs       map[string]bool
	priorQueries  []string
	gapQuestions  []string

	consecutiveFailedAnswers int
	beastAttempts            int

	analyzerMu       sync.Mutex
	analyzerRunning  bool
	pendingHint      string

	startedAt time.Time
}

// New builds an Agent ready to run question through the step loop.
func New(question string, deps Dependencies, config Config) *Agent {
	config.MaxURLsPerStep = clampURLsPerStep(config.MaxURLsPerStep)
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = 3
	}
	if config.BeastMaxAttempts <= 0 {
		config.BeastMaxAttempts = 3
	}
	if config.MaxQueriesPerStep <= 0 {
		config.MaxQueriesPerStep = 5
	}
	if config.MaxReflectPerStep <= 0 {
		config.MaxReflectPerStep = 3
	}

	return &Agent{
		deps:        deps,
		config:      config,
		state:       types.NewProcessing(question),
		visitedURLs: make(map[string]bool),
		badURLs:     make(map[string]bool),
		gapQuestions: []string{question},
		startedAt:   time.Now(),
	}
}

// State returns the agent's current state under lock.
func (a *Agent) State() types.AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Diary returns a snapshot copy of the diary so far.
func (a *Agent) Diary() []types.DiaryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.DiaryEntry, len(a.diary))
	copy(out, a.diary)
	return out
}

// transition moves the agent to next, enforcing the legal-edge invariant.
// A violation is a programming error and panics, matching the
// fail-fast contract documented on types.AgentState.CanTransitionTo.
func (a *Agent) transition(next types.AgentState) {
	if !a.state.CanTransitionTo(next) {
		panic(newStateError(a.state, next))
	}
	a.state = next
}

// Run drives the step loop to completion, calling Step repeatedly until
// the state becomes terminal or ctx is cancelled.
func (a *Agent) Run(ctx context.Context) types.AgentState {
	for {
		if err := ctx.Err(); err != nil {
			a.mu.Lock()
			a.state = types.AgentState{Kind: types.StateFailed, Reason: err.Error(), PartialKnowledge: a.knowledge}
			a.mu.Unlock()
			return a.State()
		}

		a.runStepSafely(ctx)

		state := a.State()
		if state.IsTerminal() {
			return state
		}
		if state.Kind == types.StateInputRequired {
			if err := a.awaitUserResponse(ctx, state); err != nil {
				a.mu.Lock()
				a.state = types.AgentState{Kind: types.StateFailed, Reason: err.Error(), PartialKnowledge: a.knowledge}
				a.mu.Unlock()
				return a.State()
			}
		}
	}
}

// runStepSafely recovers from a panicking step, converting it into a
// Failed terminal state rather than crashing the caller's goroutine.
func (a *Agent) runStepSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] PANIC recovered during step: %v", r)
			a.mu.Lock()
			a.state = types.AgentState{Kind: types.StateFailed, Reason: "internal error", PartialKnowledge: a.knowledge}
			a.mu.Unlock()
		}
	}()
	a.Step(ctx)
}

func (a *Agent) awaitUserResponse(ctx context.Context, state types.AgentState) error {
	resp, err := a.deps.Hub.WaitForResponse(ctx, state.QuestionID, -1)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.recordDiary(types.DiaryEntry{Kind: types.DiaryUserQuestion, Summary: "user responded: " + resp.Answer})
	a.transition(types.AgentState{Kind: types.StateProcessing, Step: state.Step, TotalStep: state.TotalStep, CurrentQuestion: state.CurrentQuestion, BudgetUsed: state.BudgetUsed})
	a.mu.Unlock()
	return nil
}

// recordDiary appends d, stamping Step and Timestamp. Caller must hold a.mu.
func (a *Agent) recordDiary(d types.DiaryEntry) {
	d.Step = a.state.TotalStep
	d.Timestamp = time.Now()
	a.diary = append(a.diary, d)
}
