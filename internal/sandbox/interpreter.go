package sandbox

import (
	"context"
	"time"
)

// Interpreter executes one code string against ctx's variables, under the
// given wall-clock timeout, returning the JSON-serialized result of the
// program's final expression/return. JSInterpreter applies
// Limits.RecursionDepth and ignores LoopIterations; PythonInterpreter
// applies Limits.LoopIterations as a step budget and ignores RecursionDepth.
type Interpreter interface {
	Execute(ctx context.Context, code string, sctx *Context, limits Limits) (string, error)
}

// Limits bounds a single execution, generalizing the original agent's
// fixed timeout/loop/recursion ceilings into configurable knobs.
type Limits struct {
	Timeout         time.Duration
	LoopIterations  uint64
	RecursionDepth  int
}

// DefaultLimits mirrors the original agent's CodeSandbox defaults.
func DefaultLimits() Limits {
	return Limits{
		Timeout:        5 * time.Second,
		LoopIterations: 100_000,
		RecursionDepth: 1000,
	}
}
