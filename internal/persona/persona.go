package persona

import "go-deep-research/internal/types"

// Persona is a lens the query-expansion pass applies to the user's
// question, generalizing the original agent's hardcoded persona prompts
// into a pluggable interface per SPEC_FULL.md §4.E.
type Persona interface {
	Name() string
	Focus() string
	Weight() float64
	IsApplicable(ctx types.PersonaContext) bool
	ExpandQuery(original string, ctx types.PersonaContext) types.SerpQuery
	PromptDescription() string
}

// Schema is the serializable configuration behind a persona, matching
// types.PersonaSchema; the registry builds a configurablePersona from one
// of these for every registered persona so enable/disable and
// serialize/deserialize share one representation for builtins and
// custom personas alike.
type Schema = types.PersonaSchema
