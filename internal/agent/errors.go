package agent

import (
	"fmt"

	"go-deep-research/internal/types"
)

// stateError reports an attempted illegal state transition — a
// programming error in the step loop, not a recoverable runtime failure.
type stateError struct {
	from types.AgentStateKind
	to   types.AgentStateKind
}

func newStateError(from, to types.AgentState) *stateError {
	return &stateError{from: from.Kind, to: to.Kind}
}

func (e *stateError) Error() string {
	return fmt.Sprintf("agent: illegal state transition %s -> %s", e.from, e.to)
}
