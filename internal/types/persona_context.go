package types

// PersonaContext carries the research state a persona's applicability and
// query-expansion logic may consult: the current question, what has
// already been searched, and how far into the step loop the agent is.
type PersonaContext struct {
	Question     string
	Domain       string
	PriorQueries []string
	Step         int
}
