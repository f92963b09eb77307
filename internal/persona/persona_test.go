package persona

import (
	"strings"
	"testing"

	"go-deep-research/internal/types"
)

func TestNewRegistryHasSevenBuiltins(t *testing.T) {
	r := NewRegistry()
	enabled := r.IterateEnabled()
	if len(enabled) != 7 {
		t.Fatalf("expected 7 builtin personas, got %d", len(enabled))
	}
}

func TestExpandQueryAllReturnsOnePerApplicablePersona(t *testing.T) {
	r := NewRegistry()
	ctx := types.PersonaContext{Question: "what is the capital of France", Step: 1}
	out := r.ExpandQueryAll("capital of France", ctx)

	if len(out) == 0 {
		t.Fatal("expected at least one expansion")
	}
	for _, wq := range out {
		if wq.Query.Q == "" {
			t.Fatalf("persona %q produced empty query", wq.SourcePersona)
		}
		if wq.Weight <= 0 {
			t.Fatalf("persona %q has non-positive weight", wq.SourcePersona)
		}
	}
}

func TestTemporalContextOnlyAppliesAtStepZeroOrWhenTimeSensitive(t *testing.T) {
	r := NewRegistry()

	atStepZero := r.ExpandQueryAll("q", types.PersonaContext{Step: 0})
	if !containsPersona(atStepZero, "temporal_context") {
		t.Fatal("expected temporal_context to apply at step 0")
	}

	later := r.ExpandQueryAll("q", types.PersonaContext{Step: 3, Question: "q"})
	if containsPersona(later, "temporal_context") {
		t.Fatal("expected temporal_context to not apply on a non-time-sensitive later step")
	}

	laterTimeSensitive := r.ExpandQueryAll("q", types.PersonaContext{Step: 3, Question: "what is the latest news"})
	if !containsPersona(laterTimeSensitive, "temporal_context") {
		t.Fatal("expected temporal_context to apply when question is time-sensitive")
	}
}

func TestDisablePersonaExcludesItFromExpansion(t *testing.T) {
	r := NewRegistry()
	if err := r.Disable("globalizer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := r.ExpandQueryAll("q", types.PersonaContext{Step: 1})
	if containsPersona(out, "globalizer") {
		t.Fatal("expected globalizer to be excluded after Disable")
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	err := r.Register(types.PersonaSchema{
		Name: "expert_skeptic", Focus: "a distinct custom focus description", Weight: 1.0,
		Enabled: true, QuerySuffix: "x",
	}, "probe question")
	if err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestRegisterRejectsShortFocus(t *testing.T) {
	r := NewRegistry()
	err := r.Register(types.PersonaSchema{Name: "short_focus", Focus: "too short", Weight: 1.0, Enabled: true}, "probe")
	if err == nil {
		t.Fatal("expected focus-length error")
	}
}

func TestRegisterRejectsInvalidWeight(t *testing.T) {
	r := NewRegistry()
	err := r.Register(types.PersonaSchema{Name: "bad_weight", Focus: "a perfectly valid focus string", Weight: 0, Enabled: true}, "probe")
	if err == nil {
		t.Fatal("expected weight-range error")
	}
}

func TestRegisterAcceptsValidCustomPersona(t *testing.T) {
	r := NewRegistry()
	err := r.Register(types.PersonaSchema{
		Name: "contrarian", Focus: "argues the opposite position to surface blind spots", Weight: 0.6,
		Enabled: true, QuerySuffix: "opposing view",
	}, "probe question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := r.ExpandQueryAll("q", types.PersonaContext{Step: 1})
	if !containsPersona(out, "contrarian") {
		t.Fatal("expected contrarian persona to be included")
	}
}

func TestSerializeDeserializeRoundTrips(t *testing.T) {
	r := NewRegistry()
	data, err := r.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r2 := NewRegistry()
	if err := r2.Deserialize(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r2.IterateEnabled()) != len(r.IterateEnabled()) {
		t.Fatalf("expected same enabled count after round trip")
	}
}

func TestDefaultExpandAppendsQuerySuffix(t *testing.T) {
	schema := types.PersonaSchema{Name: "x", Focus: "focus", Weight: 1.0, Enabled: true, QuerySuffix: "suffix"}
	q := defaultExpand(schema, "original", types.PersonaContext{})
	if !strings.Contains(q.Q, "suffix") {
		t.Fatalf("expected suffix appended, got %q", q.Q)
	}
}

func containsPersona(queries []types.WeightedQuery, name string) bool {
	for _, q := range queries {
		if q.SourcePersona == name {
			return true
		}
	}
	return false
}
