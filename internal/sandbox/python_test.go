package sandbox

import (
	"context"
	"testing"
	"time"
)

func TestPythonInterpreterExecuteReturnsValue(t *testing.T) {
	interp := NewPythonInterpreter()
	ctx := NewContext()
	ctx.SetValue("x", 10)

	out, err := interp.Execute(context.Background(), "return x * 2", ctx, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "20" {
		t.Fatalf("expected 20, got %q", out)
	}
}

func TestPythonInterpreterNoReturnValue(t *testing.T) {
	interp := NewPythonInterpreter()
	ctx := NewContext()

	_, err := interp.Execute(context.Background(), "y = 1", ctx, DefaultLimits())
	if err == nil {
		t.Fatal("expected an error for missing return value")
	}
	sandboxErr, ok := err.(*Error)
	if !ok || sandboxErr.Kind != ErrNoReturnValue {
		t.Fatalf("expected ErrNoReturnValue, got %v", err)
	}
}

func TestPythonInterpreterSyntaxError(t *testing.T) {
	interp := NewPythonInterpreter()
	ctx := NewContext()

	_, err := interp.Execute(context.Background(), "def (((", ctx, DefaultLimits())
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	sandboxErr, ok := err.(*Error)
	if !ok || sandboxErr.Kind != ErrExecution {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
}

func TestPythonInterpreterLoopIterationLimit(t *testing.T) {
	interp := NewPythonInterpreter()
	ctx := NewContext()

	limits := Limits{Timeout: 5 * time.Second, LoopIterations: 10, RecursionDepth: 1000}
	_, err := interp.Execute(context.Background(), "total = 0\nfor i in range(1000000):\n    total += i\nreturn total", ctx, limits)
	if err == nil {
		t.Fatal("expected execution to be cut off by the step limit")
	}
}

func TestPythonInterpreterInjectsListVariable(t *testing.T) {
	interp := NewPythonInterpreter()
	ctx := NewContext()
	ctx.SetValue("items", []int{1, 2, 3})

	out, err := interp.Execute(context.Background(), "return len(items)", ctx, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "3" {
		t.Fatalf("expected 3, got %q", out)
	}
}
