package types

// AgentStateKind tags the AgentState variant.
type AgentStateKind string

const (
	StateProcessing    AgentStateKind = "processing"
	StateBeastMode     AgentStateKind = "beast_mode"
	StateInputRequired AgentStateKind = "input_required"
	StateCompleted     AgentStateKind = "completed"
	StateFailed        AgentStateKind = "failed"
)

// AgentState is the tagged variant driving the step loop. Exactly one of
// the kind-specific field groups is meaningful at a time, selected by Kind.
type AgentState struct {
	Kind AgentStateKind

	// Processing
	Step             int
	TotalStep        int
	CurrentQuestion  string
	BudgetUsed       float64

	// BeastMode
	Attempts    int
	LastFailure string

	// InputRequired
	QuestionID   string
	Question     string
	QuestionKind UserQuestionKind
	Options      []string

	// Completed
	Answer     string
	References []Reference
	Trivial    bool

	// Failed
	Reason           string
	PartialKnowledge []KnowledgeItem
}

// IsTerminal reports whether s is an absorbing state.
func (s AgentState) IsTerminal() bool {
	return s.Kind == StateCompleted || s.Kind == StateFailed
}

// legalEdges encodes every transition allowed by SPEC_FULL.md §4.J. Terminal
// states have no outgoing edges — they are absorbing.
var legalEdges = map[AgentStateKind]map[AgentStateKind]bool{
	StateProcessing: {
		StateProcessing:    true,
		StateBeastMode:     true,
		StateInputRequired: true,
		StateCompleted:     true,
		StateFailed:        true,
	},
	StateInputRequired: {
		StateProcessing: true,
	},
	StateBeastMode: {
		StateCompleted: true,
		StateFailed:    true,
	},
}

// CanTransitionTo reports whether moving from s to other is a legal edge.
// Any other transition is a programming error — callers should treat a
// false result as fatal (see SPEC_FULL.md §7, state-machine invariant
// violation).
func (s AgentState) CanTransitionTo(other AgentState) bool {
	if s.IsTerminal() {
		return false
	}
	edges, ok := legalEdges[s.Kind]
	if !ok {
		return false
	}
	return edges[other.Kind]
}

// NewProcessing constructs the initial Processing state for a fresh run.
func NewProcessing(question string) AgentState {
	return AgentState{
		Kind:            StateProcessing,
		Step:            0,
		TotalStep:       0,
		CurrentQuestion: question,
		BudgetUsed:      0,
	}
}
