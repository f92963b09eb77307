package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-deep-research/internal/types"
)

// Context maps variable names to JSON-serialized values visible to
// sandboxed code, auto-populated from knowledge plus anything the caller
// adds with Set.
type Context struct {
	variables map[string]string
}

// NewContext builds an empty Context.
func NewContext() *Context {
	return &Context{variables: make(map[string]string)}
}

// FromKnowledge builds a Context pre-populated with `knowledge`,
// `urlContents`, and `previousAnswers`, mirroring the three views the
// original agent's sandbox exposes over a KnowledgeItem slice.
func FromKnowledge(items []types.KnowledgeItem) *Context {
	ctx := NewContext()

	type knowledgeView struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Type     string `json:"type"`
	}
	views := make([]knowledgeView, len(items))
	var urls, answers []string
	for i, item := range items {
		views[i] = knowledgeView{Question: item.Question, Answer: item.Answer, Type: string(item.Kind)}
		if item.Kind == types.KnowledgeURL {
			urls = append(urls, item.Answer)
		}
		if item.Kind == types.KnowledgeQA {
			answers = append(answers, item.Answer)
		}
	}

	ctx.SetValue("knowledge", views)
	ctx.SetValue("urlContents", urls)
	ctx.SetValue("previousAnswers", answers)

	return ctx
}

// Set stores a raw JSON-encoded value under name.
func (c *Context) Set(name, jsonValue string) {
	c.variables[name] = jsonValue
}

// SetValue marshals value to JSON and stores it under name; failures are
// stored as a JSON null so describe_for_llm never panics on a bad value.
func (c *Context) SetValue(name string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		c.variables[name] = "null"
		return
	}
	c.variables[name] = string(b)
}

// Variables returns the raw name→JSON map for injection into an
// interpreter.
func (c *Context) Variables() map[string]string {
	return c.variables
}

// DescribeForLLM renders a human-readable summary of every variable for
// inclusion in the code-generation prompt, truncating long previews.
func (c *Context) DescribeForLLM() string {
	if len(c.variables) == 0 {
		return "No variables available."
	}

	var sb strings.Builder
	for name, value := range c.variables {
		preview := value
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		sb.WriteString(fmt.Sprintf("- %s (%s) e.g. %s\n", name, typeHint(value), preview))
	}
	return sb.String()
}

func typeHint(value string) string {
	switch {
	case strings.HasPrefix(value, "["):
		return "Array"
	case strings.HasPrefix(value, "{"):
		return "Object"
	case strings.HasPrefix(value, `"`):
		return "String"
	case value == "true" || value == "false":
		return "Boolean"
	default:
		var f float64
		if err := json.Unmarshal([]byte(value), &f); err == nil {
			return "Number"
		}
		return "Unknown"
	}
}
