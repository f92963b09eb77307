package agent

import (
	"sort"
	"time"

	"go-deep-research/internal/types"
)

// Result is the final shape a caller of Run consumes: the terminal state
// flattened with the loop's bookkeeping (tokens spent, URLs visited,
// wall-clock timing) that types.AgentState itself does not carry.
type Result struct {
	Success     bool
	Answer      string
	References  []types.Reference
	Trivial     bool
	Error       string
	TokensUsed  uint64
	TokenBudget uint64
	VisitedURLs []string
	Steps       int
	Elapsed     time.Duration
}

// BuildResult flattens the agent's terminal state into a Result. Calling
// it before the state is terminal returns a zero-value-ish snapshot of
// whatever partial progress exists so far; callers normally wait for
// Run to return first.
func (a *Agent) BuildResult() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := Result{
		Success:     a.state.Kind == types.StateCompleted,
		Answer:      a.state.Answer,
		References:  a.state.References,
		Trivial:     a.state.Trivial,
		Error:       a.state.Reason,
		VisitedURLs: visitedURLList(a.visitedURLs),
		Steps:       a.state.TotalStep,
		Elapsed:     time.Since(a.startedAt),
	}

	if a.deps.Tracker != nil {
		r.TokensUsed = a.deps.Tracker.Used()
		r.TokenBudget = a.deps.Tracker.Budget()
	}

	return r
}

func visitedURLList(visited map[string]bool) []string {
	out := make([]string, 0, len(visited))
	for u := range visited {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
