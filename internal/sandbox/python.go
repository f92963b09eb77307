package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.starlark.net/starlark"
)

// PythonInterpreter runs Python-flavored problems through Starlark, a
// deterministic Python dialect with no file, network, or os-level
// bindings — the closest fit in the ecosystem to a Python sandbox with no
// ambient authority.
type PythonInterpreter struct{}

// NewPythonInterpreter builds a PythonInterpreter.
func NewPythonInterpreter() *PythonInterpreter { return &PythonInterpreter{} }

func (i *PythonInterpreter) Execute(ctx context.Context, code string, sctx *Context, limits Limits) (string, error) {
	predeclared := starlark.StringDict{}
	for name, raw := range sctx.Variables() {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			continue
		}
		sv, err := toStarlarkValue(value)
		if err != nil {
			return "", &Error{Kind: ErrExecution, Msg: fmt.Sprintf("failed to inject variable %q", name), Err: err}
		}
		predeclared[name] = sv
	}

	program := wrapStarlarkProgram(code)

	thread := &starlark.Thread{Name: "sandbox"}
	if limits.LoopIterations > 0 {
		thread.SetMaxExecutionSteps(limits.LoopIterations)
	}

	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = DefaultLimits().Timeout
	}

	timer := time.AfterFunc(timeout, func() { thread.Cancel("execution timeout") })
	defer timer.Stop()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("context cancelled")
		case <-stop:
		}
	}()
	defer close(stop)

	globals, err := starlark.ExecFile(thread, "solve.star", program, predeclared)
	if err != nil {
		if strings.Contains(err.Error(), "timeout") {
			return "", &Error{Kind: ErrTimeout, Msg: fmt.Sprintf("%dms", timeout.Milliseconds())}
		}
		if strings.Contains(err.Error(), "cancelled") {
			return "", &Error{Kind: ErrTimeout, Msg: "context cancelled"}
		}
		return "", &Error{Kind: ErrExecution, Msg: err.Error(), Err: err}
	}

	result, ok := globals["__result"]
	if !ok || result == starlark.None {
		return "", &Error{Kind: ErrNoReturnValue, Msg: "code did not return a value"}
	}

	converted, err := fromStarlarkValue(result)
	if err != nil {
		return "", &Error{Kind: ErrExecution, Msg: "failed to convert result", Err: err}
	}

	b, err := json.Marshal(converted)
	if err != nil {
		return "", &Error{Kind: ErrExecution, Msg: "failed to serialize result", Err: err}
	}
	return string(b), nil
}

// wrapStarlarkProgram indents code as the body of a __solve function and
// captures its return value in a module-level __result, since Starlark
// has no top-level return or implicit expression value.
func wrapStarlarkProgram(code string) string {
	lines := strings.Split(code, "\n")
	var indented strings.Builder
	for _, line := range lines {
		indented.WriteString("    ")
		indented.WriteString(line)
		indented.WriteString("\n")
	}
	return fmt.Sprintf("def __solve():\n%s\n__result = __solve()\n", indented.String())
}
