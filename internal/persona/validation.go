package persona

import (
	"fmt"
	"regexp"

	"go-deep-research/internal/types"
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const minFocusLength = 10

// validateSchema enforces the registration invariants from
// SPEC_FULL.md §4.E that apply to every persona regardless of origin.
func validateSchema(schema types.PersonaSchema) error {
	if !nameRe.MatchString(schema.Name) {
		return fmt.Errorf("persona name %q must match %s", schema.Name, nameRe.String())
	}
	if len(schema.Focus) < minFocusLength {
		return fmt.Errorf("persona %q focus must be at least %d characters", schema.Name, minFocusLength)
	}
	if schema.Weight <= 0 || schema.Weight > 2.0 {
		return fmt.Errorf("persona %q weight %v out of range (0, 2.0]", schema.Name, schema.Weight)
	}
	return nil
}

// validateCustomPersona additionally enforces determinism and non-empty
// expansion on a probe query, required only for non-builtin personas.
func validateCustomPersona(p Persona, probeQuestion string) error {
	ctx := types.PersonaContext{Question: probeQuestion}

	first := p.ExpandQuery(probeQuestion, ctx)
	second := p.ExpandQuery(probeQuestion, ctx)
	if first != second {
		return fmt.Errorf("persona %q expand_query is not deterministic", p.Name())
	}
	if first.Q == "" {
		return fmt.Errorf("persona %q produced an empty expansion on the probe query", p.Name())
	}
	return nil
}
