package persona

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go-deep-research/internal/types"
)

// Registry holds every registered persona, builtin or custom, keyed by
// name, and applies the enable/disable, serialization, and expansion
// operations SPEC_FULL.md §4.E names.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byName map[string]Persona
}

// NewRegistry builds a Registry pre-populated with the seven built-in
// personas, all enabled.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Persona)}
	for _, schema := range builtinSchemas() {
		p := newBuiltinPersona(schema)
		r.order = append(r.order, p.Name())
		r.byName[p.Name()] = p
	}
	return r
}

// Register adds p after validating its schema. probeQuestion is used to
// check determinism and non-empty expansion; builtin personas (registered
// via NewRegistry) skip this check, but any persona registered through
// Register — including a re-registration of a builtin-named schema — is
// treated as custom and must pass it.
func (r *Registry) Register(schema types.PersonaSchema, probeQuestion string) error {
	if err := validateSchema(schema); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.byName[schema.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("persona %q already registered", schema.Name)
	}
	r.mu.Unlock()

	p := &configurablePersona{schema: schema}
	if err := validateCustomPersona(p, probeQuestion); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, schema.Name)
	r.byName[schema.Name] = p
	return nil
}

// Enable turns on the named persona. Returns an error if it does not exist.
func (r *Registry) Enable(name string) error { return r.setEnabled(name, true) }

// Disable turns off the named persona. Returns an error if it does not exist.
func (r *Registry) Disable(name string) error { return r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byName[name].(*configurablePersona)
	if !ok {
		return fmt.Errorf("persona %q not found", name)
	}
	p.schema.Enabled = enabled
	return nil
}

// IterateEnabled returns every currently enabled persona, in registration
// order.
func (r *Registry) IterateEnabled() []Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Persona, 0, len(r.order))
	for _, name := range r.order {
		p := r.byName[name]
		if cp, ok := p.(*configurablePersona); ok && !cp.schema.Enabled {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ExpandQueryAll returns one WeightedQuery per applicable, enabled persona.
func (r *Registry) ExpandQueryAll(original string, ctx types.PersonaContext) []types.WeightedQuery {
	var out []types.WeightedQuery
	for _, p := range r.IterateEnabled() {
		if !p.IsApplicable(ctx) {
			continue
		}
		out = append(out, types.WeightedQuery{
			Query:         p.ExpandQuery(original, ctx),
			Weight:        p.Weight(),
			SourcePersona: p.Name(),
		})
	}
	return out
}

// Serialize returns every registered persona's schema, sorted by name for
// a stable encoding.
func (r *Registry) Serialize() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]types.PersonaSchema, 0, len(r.byName))
	for _, p := range r.byName {
		if cp, ok := p.(*configurablePersona); ok {
			schemas = append(schemas, cp.schema)
		}
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })

	return json.Marshal(schemas)
}

// Deserialize replaces the registry's contents with the schemas encoded in
// data, skipping (but not failing on) any that fail validation.
func (r *Registry) Deserialize(data []byte) error {
	var schemas []types.PersonaSchema
	if err := json.Unmarshal(data, &schemas); err != nil {
		return fmt.Errorf("decode persona schemas: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.byName = make(map[string]Persona)
	for _, schema := range schemas {
		if err := validateSchema(schema); err != nil {
			continue
		}
		var p *configurablePersona
		if isBuiltinName(schema.Name) {
			p = newBuiltinPersona(schema)
		} else {
			p = &configurablePersona{schema: schema}
		}
		r.order = append(r.order, schema.Name)
		r.byName[schema.Name] = p
	}
	return nil
}

func isBuiltinName(name string) bool {
	for _, schema := range builtinSchemas() {
		if schema.Name == name {
			return true
		}
	}
	return false
}
