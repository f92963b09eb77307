package persona

import (
	"fmt"
	"strings"

	"go-deep-research/internal/types"
)

// configurablePersona implements Persona from a serializable Schema plus
// the two behaviors that can't be serialized: applicability and query
// expansion. Builtins supply bespoke closures; personas registered from a
// deserialized Schema alone fall back to defaultExpand / always-applicable.
type configurablePersona struct {
	schema     types.PersonaSchema
	applicable func(types.PersonaContext) bool
	expand     func(original string, ctx types.PersonaContext) types.SerpQuery
}

func (p *configurablePersona) Name() string    { return p.schema.Name }
func (p *configurablePersona) Focus() string   { return p.schema.Focus }
func (p *configurablePersona) Weight() float64 { return p.schema.Weight }

func (p *configurablePersona) IsApplicable(ctx types.PersonaContext) bool {
	if !p.schema.Enabled {
		return false
	}
	if p.applicable != nil {
		return p.applicable(ctx)
	}
	return true
}

func (p *configurablePersona) ExpandQuery(original string, ctx types.PersonaContext) types.SerpQuery {
	if p.expand != nil {
		return p.expand(original, ctx)
	}
	return defaultExpand(p.schema, original, ctx)
}

func (p *configurablePersona) PromptDescription() string {
	return fmt.Sprintf("%s: %s", p.schema.Name, p.schema.Focus)
}

func defaultExpand(schema types.PersonaSchema, original string, ctx types.PersonaContext) types.SerpQuery {
	q := original
	if schema.QuerySuffix != "" {
		q = strings.TrimSpace(original + " " + schema.QuerySuffix)
	}
	return types.SerpQuery{
		Q:          q,
		TimeFilter: schema.DefaultTimeFilter,
		Location:   schema.DefaultLocation,
	}.Normalize()
}

// builtinSchemas returns the seven built-in persona schemas with their
// weight and focus, all enabled by default.
func builtinSchemas() []types.PersonaSchema {
	return []types.PersonaSchema{
		{Name: "expert_skeptic", Focus: "challenges claims and looks for counter-evidence and caveats", Weight: 1.0, Enabled: true, QuerySuffix: "criticism OR limitations OR controversy"},
		{Name: "detail_analyst", Focus: "digs into precise figures, dates, and technical specifics", Weight: 1.0, Enabled: true, QuerySuffix: "exact numbers OR specifications OR data"},
		{Name: "historical_researcher", Focus: "traces how the topic has changed or been understood over time", Weight: 0.8, Enabled: true, QuerySuffix: "history OR timeline OR origin"},
		{Name: "comparative_thinker", Focus: "looks for alternatives and how the topic compares to similar things", Weight: 0.8, Enabled: true, QuerySuffix: "vs OR comparison OR alternatives"},
		{Name: "temporal_context", Focus: "checks recency and whether the answer might already be outdated", Weight: 0.9, Enabled: true, QuerySuffix: "latest OR 2026 OR recent", DefaultTimeFilter: "past_year"},
		{Name: "globalizer", Focus: "looks beyond one country or culture for a broader perspective", Weight: 0.7, Enabled: true, QuerySuffix: "global OR international OR worldwide"},
		{Name: "reality_skepticalist", Focus: "tests whether the premise of the question is even true to begin with", Weight: 0.9, Enabled: true, QuerySuffix: "fact check OR myth OR is it true"},
	}
}

// newBuiltinPersona builds the configurablePersona for one builtin schema,
// attaching the applicability rule specific to that persona. Most builtins
// are always applicable; temporal_context and reality_skepticalist narrow
// to contexts where their lens adds signal.
func newBuiltinPersona(schema types.PersonaSchema) *configurablePersona {
	p := &configurablePersona{schema: schema}

	switch schema.Name {
	case "temporal_context":
		p.applicable = func(ctx types.PersonaContext) bool {
			return ctx.Step == 0 || looksTimeSensitive(ctx.Question)
		}
	case "reality_skepticalist":
		p.applicable = func(ctx types.PersonaContext) bool {
			return ctx.Step == 0
		}
	default:
		p.applicable = func(types.PersonaContext) bool { return true }
	}

	return p
}

func looksTimeSensitive(question string) bool {
	lower := strings.ToLower(question)
	for _, marker := range []string{"current", "latest", "recent", "today", "now", "this year"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
