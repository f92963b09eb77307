package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/reference"
	"go-deep-research/internal/sandbox"
	"go-deep-research/internal/types"
)

// Step runs exactly one iteration of the research loop: compute
// permissions, build the prompt, ask the LLM to decide an action, dispatch
// it, and advance TotalStep/BudgetUsed. The caller (runStepSafely) owns
// panic recovery; Step itself assumes illegal transitions are fatal.
func (a *Agent) Step(ctx context.Context) {
	a.mu.Lock()
	if a.state.Kind == types.StateBeastMode {
		a.mu.Unlock()
		a.runBeastMode(ctx)
		return
	}

	// TotalStep/Step are 1-based: the very first call to Step runs as
	// step 1, matching "step 1 returns Answer" in the trivial-answer
	// scenario. Bumping here (in place, not via transition — the state
	// kind is unchanged) rather than at the end of the step lets
	// dispatchAnswer's trivial check see its own step number.
	a.state.Step++
	a.state.TotalStep++

	perms := a.computePermissions()
	gapQuestion := a.nextGapQuestion()
	prompt := a.buildPrompt(gapQuestion, perms)
	state := a.state
	a.mu.Unlock()

	action, err := a.deps.LLM.DecideAction(ctx, prompt, perms)
	if err != nil {
		log.Printf("[agent] decide_action error: %v", err)
		a.mu.Lock()
		a.consecutiveFailedAnswers++
		a.maybeEnterBeastMode(state)
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(ctx, action)
	a.finishStep()
	a.maybeStartAnalyzer()
}

// nextGapQuestion rotates through the gap-question queue, matching the
// original agent's `gap_questions[total_step % len(gap_questions)]` policy.
// Caller must hold a.mu.
func (a *Agent) nextGapQuestion() string {
	if len(a.gapQuestions) == 0 {
		return a.state.CurrentQuestion
	}
	return a.gapQuestions[a.state.TotalStep%len(a.gapQuestions)]
}

// buildPrompt assembles the three-part prompt the LLM client expects:
// system instructions enumerating allowed actions, a user block carrying
// the active gap question and the knowledge gathered so far, and the
// diary rendered as running context. Caller must hold a.mu.
func (a *Agent) buildPrompt(gapQuestion string, perms types.ActionPermissions) llmclient.Prompt {
	system := fmt.Sprintf("You are a research agent. Allowed actions this step: %v.", perms.AllowedKinds())

	a.analyzerMu.Lock()
	hint := a.pendingHint
	a.pendingHint = ""
	a.analyzerMu.Unlock()
	if hint != "" {
		system += hint
	}

	user := fmt.Sprintf("Original question: %s\nCurrent focus: %s\nKnowledge gathered: %d items.",
		a.state.CurrentQuestion, gapQuestion, len(a.knowledge))

	diary := renderDiary(a.diary)

	return llmclient.Prompt{System: system, User: user, Diary: diary}
}

func renderDiary(entries []types.DiaryEntry) string {
	var out string
	for _, e := range entries {
		out += fmt.Sprintf("[step %d] %s: %s\n", e.Step, e.Kind, e.Summary)
	}
	return out
}

// dispatch routes action to its handler by kind. Caller must hold a.mu.
func (a *Agent) dispatch(ctx context.Context, action types.Action) {
	switch action.Kind {
	case types.ActionSearch:
		a.dispatchSearch(ctx, action)
	case types.ActionRead:
		a.dispatchRead(ctx, action)
	case types.ActionReflect:
		a.dispatchReflect(action)
	case types.ActionAnswer:
		a.dispatchAnswer(ctx, action)
	case types.ActionCoding:
		a.dispatchCoding(ctx, action)
	case types.ActionAskUser:
		a.dispatchAskUser(action)
	case types.ActionIntegration:
		a.dispatchIntegration(ctx, action)
	default:
		log.Printf("[agent] unknown action kind %q, treating as reflect no-op", action.Kind)
	}
}

// dispatchSearch expands the declared queries through every applicable
// persona, dedups the expansion against every query issued so far, and
// fires the survivors at the search client concurrently.
func (a *Agent) dispatchSearch(ctx context.Context, action types.Action) {
	if len(action.Queries) == 0 {
		a.recordDiary(types.DiaryEntry{Kind: types.DiarySearch, Summary: "no queries declared"})
		return
	}

	personaCtx := types.PersonaContext{
		Question:     a.state.CurrentQuestion,
		PriorQueries: a.priorQueries,
		Step:         a.state.TotalStep,
	}

	var candidates []string
	for _, q := range action.Queries {
		expanded := a.deps.Personas.ExpandQueryAll(q, personaCtx)
		if len(expanded) == 0 {
			candidates = append(candidates, q)
			continue
		}
		for _, wq := range expanded {
			candidates = append(candidates, wq.Query.Q)
		}
	}

	fresh := a.deps.Dedupe.Dedupe(ctx, a.priorQueries, candidates)
	if len(fresh) > a.config.MaxQueriesPerStep {
		fresh = fresh[:a.config.MaxQueriesPerStep]
	}
	if len(fresh) == 0 {
		a.recordDiary(types.DiaryEntry{Kind: types.DiarySearch, Queries: action.Queries, Summary: "every candidate query was a duplicate"})
		return
	}

	a.priorQueries = append(a.priorQueries, fresh...)

	start := time.Now()
	results := a.deps.Search.SearchBatch(ctx, fresh)
	found, bytesTransferred, failures := 0, 0, 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			log.Printf("[agent] search %q failed: %v", r.Query, r.Err)
			continue
		}
		for _, snip := range r.Outcome.URLs {
			bytesTransferred += len(snip.Description)
			if a.visitedURLs[snip.URL] || a.badURLs[snip.URL] {
				continue
			}
			a.collectedURLs = append(a.collectedURLs, snip)
			found++
		}
	}
	if a.deps.Metrics != nil {
		a.deps.Metrics.RecordOperation(uint64(time.Since(start).Milliseconds()), failures == 0, found, bytesTransferred)
	}

	a.recordDiary(types.DiaryEntry{Kind: types.DiarySearch, Queries: fresh, URLsFound: found, Summary: fmt.Sprintf("issued %d queries, found %d new URLs", len(fresh), found)})
}

// dispatchRead reads up to MaxURLsPerStep of the action's declared URLs,
// turning each success into a KnowledgeURL item and each failure into a
// badURLs entry so it is never retried.
func (a *Agent) dispatchRead(ctx context.Context, action types.Action) {
	urls := action.URLs
	if len(urls) > a.config.MaxURLsPerStep {
		urls = urls[:a.config.MaxURLsPerStep]
	}
	if len(urls) == 0 {
		a.recordDiary(types.DiaryEntry{Kind: types.DiaryRead, Summary: "no URLs declared"})
		return
	}

	outcomes := a.deps.Reader.ReadURLsBatch(ctx, urls)
	var readOK []string
	for _, o := range outcomes {
		if o.Err != nil {
			a.badURLs[o.URL] = true
			log.Printf("[agent] read %q failed: %v", o.URL, o.Err)
			continue
		}
		a.visitedURLs[o.URL] = true
		readOK = append(readOK, o.URL)
		a.knowledge = append(a.knowledge, types.KnowledgeItem{
			Question: o.URL,
			Answer:   o.Outcome.Text,
			Kind:     types.KnowledgeURL,
			References: []types.Reference{{
				URL:   o.URL,
				Title: o.Outcome.Title,
			}},
		})
	}

	a.recordDiary(types.DiaryEntry{Kind: types.DiaryRead, URLsRead: readOK, Summary: fmt.Sprintf("read %d/%d URLs successfully", len(readOK), len(urls))})
}

// dispatchReflect appends unique new gap questions to the queue.
func (a *Agent) dispatchReflect(action types.Action) {
	existing := make(map[string]bool, len(a.gapQuestions))
	for _, q := range a.gapQuestions {
		existing[q] = true
	}

	added := 0
	for _, q := range action.GapQuestions {
		if added >= a.config.MaxReflectPerStep {
			break
		}
		if existing[q] {
			continue
		}
		existing[q] = true
		a.gapQuestions = append(a.gapQuestions, q)
		added++
	}

	a.recordDiary(types.DiaryEntry{Kind: types.DiaryReflect, GapQuestions: action.GapQuestions, Summary: fmt.Sprintf("added %d new gap questions", added)})
}

// dispatchAnswer runs the evaluation pipeline (skipped entirely for a
// trivial first-step direct answer) and transitions to Completed on pass
// or records a failed-answer diary entry and bumps the failure counter
// on reject.
func (a *Agent) dispatchAnswer(ctx context.Context, action types.Action) {
	trivial := a.state.TotalStep == 1 && a.config.AllowDirectAnswer

	if trivial {
		a.completeAnswer(ctx, action.AnswerText, true)
		return
	}

	required, err := a.deps.Evaluator.DetermineRequired(ctx, a.state.CurrentQuestion)
	if err != nil {
		log.Printf("[agent] determine_eval_types error: %v", err)
		a.failAnswer(types.EvalStrict, err.Error())
		return
	}

	result := a.deps.Evaluator.RunSequential(ctx, a.state.CurrentQuestion, action.AnswerText, a.knowledge, required)
	if !result.OverallPassed {
		kind := types.EvalStrict
		reason := "evaluation failed"
		if result.FailedAt != nil {
			kind = *result.FailedAt
		}
		for _, o := range result.PerEvaluator {
			if !o.Passed {
				reason = o.Reasoning
				break
			}
		}
		a.failAnswer(kind, reason)
		return
	}

	a.completeAnswer(ctx, action.AnswerText, false)
}

func (a *Agent) failAnswer(kind types.EvaluationKind, reason string) {
	a.consecutiveFailedAnswers++
	a.knowledge = append(a.knowledge, types.KnowledgeItem{
		Answer: fmt.Sprintf("FAILED %s: %s", kind, reason),
		Kind:   types.KnowledgeError,
	})
	a.recordDiary(types.DiaryEntry{Kind: types.DiaryFailedAnswer, EvalKind: string(kind), FailureReason: reason, Summary: "answer rejected by evaluation"})
}

func (a *Agent) completeAnswer(ctx context.Context, answerText string, trivial bool) {
	built := answerText
	var refs []types.Reference
	if a.deps.RefEmbedder != nil {
		result := reference.Build(ctx, a.deps.RefEmbedder, answerText, a.knowledge, reference.Options{})
		built = result.Answer
		refs = result.References
	}

	a.consecutiveFailedAnswers = 0
	a.transition(types.AgentState{
		Kind:       types.StateCompleted,
		Answer:     built,
		References: refs,
		Trivial:    trivial,
	})
}

// dispatchCoding runs the sandbox against the action's declared problem,
// folding a successful result into knowledge as a KnowledgeCoding item.
func (a *Agent) dispatchCoding(ctx context.Context, action types.Action) {
	sctx := sandbox.FromKnowledge(a.knowledge)
	box := sandbox.New(sctx, 3, a.deps.SandboxLimits)

	result := box.Solve(ctx, a.deps.LLM, action.Problem)
	if !result.Success {
		a.recordDiary(types.DiaryEntry{Kind: types.DiaryCoding, FailureReason: result.Error, Summary: "coding attempt failed"})
		return
	}

	a.knowledge = append(a.knowledge, types.KnowledgeItem{
		Question: action.Problem,
		Answer:   result.Output,
		Kind:     types.KnowledgeCoding,
	})
	a.recordDiary(types.DiaryEntry{Kind: types.DiaryCoding, CodeOutput: result.Output, Summary: fmt.Sprintf("solved in %d attempt(s)", result.Attempts)})
}

// dispatchAskUser transitions to InputRequired for a blocking question, or
// simply records a diary entry for a non-blocking suggestion.
func (a *Agent) dispatchAskUser(action types.Action) {
	if !action.UserQuestionKind.IsBlocking() {
		a.recordDiary(types.DiaryEntry{Kind: types.DiaryUserQuestion, Summary: "suggestion: " + action.UserQuestion})
		return
	}

	q, err := a.deps.Hub.Ask(types.UserQuestion{
		Kind:     action.UserQuestionKind,
		Question: action.UserQuestion,
		Options:  action.Options,
		Think:    action.Think,
	})
	if err != nil {
		log.Printf("[agent] ask_user failed: %v", err)
		a.recordDiary(types.DiaryEntry{Kind: types.DiaryUserQuestion, Summary: "failed to enqueue question: " + err.Error()})
		return
	}

	a.recordDiary(types.DiaryEntry{Kind: types.DiaryUserQuestion, Summary: "asked: " + action.UserQuestion})
	a.transition(types.AgentState{
		Kind:            types.StateInputRequired,
		Step:            a.state.Step,
		TotalStep:       a.state.TotalStep,
		CurrentQuestion: a.state.CurrentQuestion,
		BudgetUsed:      a.state.BudgetUsed,
		QuestionID:      q.ID,
		Question:        q.Question,
		QuestionKind:    q.Kind,
		Options:         q.Options,
	})
}

// dispatchIntegration runs the configured IntegrationExecutor, defaulting
// to a diary-only no-op when none is wired.
func (a *Agent) dispatchIntegration(ctx context.Context, action types.Action) {
	summary := "integration: " + action.IntegrationName
	if a.deps.Integration != nil {
		result, err := a.deps.Integration.Execute(ctx, action.IntegrationName, action.IntegrationParams)
		if err != nil {
			summary = fmt.Sprintf("integration %s failed: %v", action.IntegrationName, err)
		} else {
			summary = fmt.Sprintf("integration %s: %s", action.IntegrationName, result)
		}
	}
	a.recordDiary(types.DiaryEntry{Kind: types.DiaryIntegration, Integration: action.IntegrationName, Summary: summary})
}

// finishStep recomputes BudgetUsed from the shared token tracker, in
// place, and then checks whether the loop has exhausted its budget or
// failure allowance. Caller must hold a.mu; no-op if the step's dispatch
// already moved to a different state kind (Completed, Failed, or
// InputRequired).
func (a *Agent) finishStep() {
	if a.state.Kind != types.StateProcessing {
		return
	}

	if a.deps.Tracker != nil {
		a.state.BudgetUsed = a.deps.Tracker.FractionUsed()
	}

	a.maybeEnterBeastMode(a.state)
}

// maybeEnterBeastMode transitions into BeastMode once the loop has
// exceeded its failure budget or approaches the token ceiling, mirroring
// the original agent's last-resort escape hatch. Caller must hold a.mu.
func (a *Agent) maybeEnterBeastMode(prior types.AgentState) {
	if a.state.Kind != types.StateProcessing {
		return
	}
	overFailures := a.consecutiveFailedAnswers >= a.config.MaxConsecutiveFailures
	overBudget := a.state.BudgetUsed >= a.config.BeastModeBudgetFrac
	if !overFailures && !overBudget {
		return
	}
	a.transition(types.AgentState{Kind: types.StateBeastMode, Attempts: 0})
}

// runBeastMode makes one forceful, unevaluated answer attempt. Exhausting
// BeastMaxAttempts transitions to Failed.
func (a *Agent) runBeastMode(ctx context.Context) {
	a.mu.Lock()
	prompt := a.buildPrompt(a.state.CurrentQuestion, types.BeastModeOnly())
	a.mu.Unlock()

	answer, err := a.deps.LLM.GenerateAnswer(ctx, prompt, 0.7)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.beastAttempts++
		a.recordDiary(types.DiaryEntry{Kind: types.DiaryFailedAnswer, FailureReason: err.Error(), Summary: "beast mode attempt failed"})
		if a.beastAttempts >= a.config.BeastMaxAttempts {
			a.transition(types.AgentState{Kind: types.StateFailed, Reason: "beast mode exhausted: " + err.Error(), PartialKnowledge: a.knowledge})
		} else {
			// Still BeastMode: update the payload in place rather than
			// transitioning, since BeastMode has no self-edge — only
			// Completed and Failed are legal successors.
			a.state.Attempts = a.beastAttempts
			a.state.LastFailure = err.Error()
		}
		return
	}

	a.completeAnswer(ctx, answer.Answer, false)
}

// maybeStartAnalyzer kicks off the async recap/blame/improvement analysis
// once two consecutive answers have failed; its hint is picked up by the
// first prompt built after the analysis finishes. Never blocks the caller.
// Caller must hold a.mu.
func (a *Agent) maybeStartAnalyzer() {
	if a.consecutiveFailedAnswers < 2 {
		return
	}

	a.analyzerMu.Lock()
	if a.analyzerRunning {
		a.analyzerMu.Unlock()
		return
	}
	a.analyzerRunning = true
	a.analyzerMu.Unlock()

	diarySnapshot := make([]types.DiaryEntry, len(a.diary))
	copy(diarySnapshot, a.diary)
	atStep := a.state.TotalStep
	llm := a.deps.LLM

	go a.runAnalyzer(llm, diarySnapshot, atStep)
}
