package sandbox

import (
	"testing"

	"go.starlark.net/starlark"
)

func TestToFromStarlarkValueRoundTrip(t *testing.T) {
	cases := []any{
		nil,
		true,
		false,
		"hello",
		float64(3),
		float64(3.5),
		[]any{float64(1), "two", true},
		map[string]any{"a": float64(1), "b": "two"},
	}

	for _, c := range cases {
		sv, err := toStarlarkValue(c)
		if err != nil {
			t.Fatalf("toStarlarkValue(%v) unexpected error: %v", c, err)
		}
		back, err := fromStarlarkValue(sv)
		if err != nil {
			t.Fatalf("fromStarlarkValue(%v) unexpected error: %v", sv, err)
		}

		switch want := c.(type) {
		case map[string]any:
			got, ok := back.(map[string]any)
			if !ok {
				t.Fatalf("expected map back, got %T", back)
			}
			for k, v := range want {
				if got[k] != roundTripped(v) {
					t.Fatalf("key %q: want %v got %v", k, roundTripped(v), got[k])
				}
			}
		case []any:
			got, ok := back.([]any)
			if !ok || len(got) != len(want) {
				t.Fatalf("expected matching slice back, got %v", back)
			}
		default:
			if back != roundTripped(want) {
				t.Fatalf("want %v (%T) got %v (%T)", roundTripped(want), roundTripped(want), back, back)
			}
		}
	}
}

// roundTripped is the value fromStarlarkValue yields for v after
// toStarlarkValue: integral float64s become starlark.Int and so come back
// as int64.
func roundTripped(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

func TestToStarlarkValueRejectsUnsupportedType(t *testing.T) {
	_, err := toStarlarkValue(struct{ X int }{X: 1})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestFromStarlarkValueRejectsUnsupportedType(t *testing.T) {
	_, err := fromStarlarkValue(starlark.NewSet(1))
	if err == nil {
		t.Fatal("expected error for unsupported starlark type")
	}
}
