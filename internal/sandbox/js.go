package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// JSInterpreter runs JavaScript-flavored problems through goja, an
// embeddable interpreter with no filesystem or network bindings by
// construction — isolation comes from never registering those APIs, the
// same guarantee the original agent leaned on Boa's engine for.
type JSInterpreter struct{}

// NewJSInterpreter builds a JSInterpreter.
func NewJSInterpreter() *JSInterpreter { return &JSInterpreter{} }

func (i *JSInterpreter) Execute(ctx context.Context, code string, sctx *Context, limits Limits) (string, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(limits.RecursionDepth)

	for name, raw := range sctx.Variables() {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			continue
		}
		if err := vm.Set(name, value); err != nil {
			return "", &Error{Kind: ErrExecution, Msg: fmt.Sprintf("failed to inject variable %q", name), Err: err}
		}
	}

	wrapped := fmt.Sprintf("(function() {\n%s\n})()", code)

	type outcome struct {
		value goja.Value
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := vm.RunString(wrapped)
		done <- outcome{value: v, err: err}
	}()

	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = DefaultLimits().Timeout
	}

	select {
	case out := <-done:
		if out.err != nil {
			return "", &Error{Kind: ErrExecution, Msg: out.err.Error(), Err: out.err}
		}
		if out.value == nil || goja.IsUndefined(out.value) {
			return "", &Error{Kind: ErrNoReturnValue, Msg: "code did not return a value"}
		}
		b, err := json.Marshal(out.value.Export())
		if err != nil {
			return "", &Error{Kind: ErrExecution, Msg: "failed to serialize result", Err: err}
		}
		return string(b), nil

	case <-time.After(timeout):
		vm.Interrupt("execution timeout")
		<-done
		return "", &Error{Kind: ErrTimeout, Msg: fmt.Sprintf("%dms", timeout.Milliseconds())}

	case <-ctx.Done():
		vm.Interrupt("context cancelled")
		<-done
		return "", &Error{Kind: ErrTimeout, Msg: "context cancelled"}
	}
}
