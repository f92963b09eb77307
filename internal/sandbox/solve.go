package sandbox

import (
	"context"
	"strings"
	"time"

	"go-deep-research/internal/llmclient"
)

// Result is the outcome of solve(), matching SPEC_FULL.md §4.G's shape.
type Result struct {
	Success         bool
	Output          string
	Error           string
	Code            string
	Attempts        int
	ExecutionTimeMs int64
}

// CodeGenerator is the capability this package needs from llmclient.Client.
type CodeGenerator interface {
	GenerateCode(ctx context.Context, problem, availableVarsDescription string, prior []llmclient.PriorAttempt, lang llmclient.Language) (llmclient.CodeGenResult, error)
}

// Sandbox owns a Context and the interpreters available to solve().
type Sandbox struct {
	ctx         *Context
	maxAttempts int
	limits      Limits
	js          Interpreter
	python      Interpreter
}

// New builds a Sandbox over sctx with the given attempt and execution
// limits. maxAttempts <= 0 defaults to 3, matching the original agent.
func New(sctx *Context, maxAttempts int, limits Limits) *Sandbox {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Sandbox{
		ctx:         sctx,
		maxAttempts: maxAttempts,
		limits:      limits,
		js:          NewJSInterpreter(),
		python:      NewPythonInterpreter(),
	}
}

// PickLanguage chooses an execution path per problem. Problems that read
// as primarily numeric/data-shaping default to Python (closer to the
// scripting idiom most LLMs reach for); anything mentioning JSON, DOM, or
// web-shaped data defaults to JavaScript, since that is the native
// encoding this agent's knowledge variables already use.
func PickLanguage(problem string) llmclient.Language {
	if containsAny(problem, []string{"json", "regex", "parse html", "dom", "fetch"}) {
		return llmclient.LanguageJavaScript
	}
	return llmclient.LanguagePython
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Solve generates and executes code for problem, retrying up to
// s.maxAttempts times with the accumulated (code, error) history fed back
// into each subsequent generate_code call.
func (s *Sandbox) Solve(ctx context.Context, gen CodeGenerator, problem string) Result {
	start := time.Now()
	lang := PickLanguage(problem)
	interp := s.interpreterFor(lang)

	var prior []llmclient.PriorAttempt
	var lastCode, lastErr string

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		codeGen, err := gen.GenerateCode(ctx, problem, s.ctx.DescribeForLLM(), prior, lang)
		if err != nil {
			lastCode = ""
			lastErr = err.Error()
			prior = append(prior, llmclient.PriorAttempt{Code: "", Error: lastErr})
			continue
		}
		lastCode = codeGen.Code

		output, err := interp.Execute(ctx, codeGen.Code, s.ctx, s.limits)
		if err == nil {
			return Result{
				Success:         true,
				Output:          output,
				Code:            codeGen.Code,
				Attempts:        attempt,
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}
		}

		lastErr = err.Error()
		prior = append(prior, llmclient.PriorAttempt{Code: codeGen.Code, Error: lastErr})
	}

	return Result{
		Success:         false,
		Error:           lastErr,
		Code:            lastCode,
		Attempts:        s.maxAttempts,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

func (s *Sandbox) interpreterFor(lang llmclient.Language) Interpreter {
	if lang == llmclient.LanguageJavaScript {
		return s.js
	}
	return s.python
}
