package llmclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-deep-research/internal/types"
)

// actionEnvelope mirrors the JSON shape the model is instructed to emit for
// decide_action. Only the fields matching "action" are meaningful; unused
// fields are left zero-valued by the model and ignored here.
type actionEnvelope struct {
	Action       string            `json:"action"`
	Think        string            `json:"think"`
	Queries      []string          `json:"queries"`
	URLs         []string          `json:"urls"`
	GapQuestions []string          `json:"gap_questions"`
	AnswerText   string            `json:"answer_text"`
	Problem      string            `json:"problem"`
	Question     string            `json:"question"`
	QuestionKind string            `json:"question_kind"`
	Options      []string          `json:"options"`
	Integration  string            `json:"integration"`
	Params       map[string]string `json:"params"`
}

// actionInstructions renders the decide_action response contract, listing
// only the actions perms currently allows so the model cannot choose an
// action the step loop would reject.
func actionInstructions(perms types.ActionPermissions) string {
	var allowed []string
	for _, k := range perms.AllowedKinds() {
		allowed = append(allowed, string(k))
	}

	var sb strings.Builder
	sb.WriteString("Choose exactly one action from: ")
	sb.WriteString(strings.Join(allowed, ", "))
	sb.WriteString(". Respond with a single JSON object shaped like:\n")
	sb.WriteString(`{"action": "<one of the allowed actions>", "think": "<brief rationale>", ` +
		`"queries": ["..."], "urls": ["..."], "gap_questions": ["..."], "answer_text": "...", ` +
		`"problem": "...", "question": "...", "question_kind": "clarification|confirmation|preference|suggestion", ` +
		`"options": ["..."], "integration": "...", "params": {"k": "v"}}` + "\n")
	sb.WriteString("Only populate the fields relevant to the chosen action; omit or leave the rest empty.")
	return sb.String()
}

// extractJSON returns the first top-level JSON object found in s, stripping
// any surrounding prose or markdown code fences the model adds despite
// instructions.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// parseAction decodes the model's decide_action output into a types.Action.
func parseAction(content string) (types.Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal([]byte(extractJSON(content)), &env); err != nil {
		return types.Action{}, fmt.Errorf("decode action envelope: %w", err)
	}
	if env.Action == "" {
		return types.Action{}, fmt.Errorf("action field missing")
	}

	action := types.Action{
		Kind:         types.ActionKind(env.Action),
		Think:        env.Think,
		Queries:      env.Queries,
		URLs:         env.URLs,
		GapQuestions: env.GapQuestions,
		AnswerText:   env.AnswerText,
		Problem:      env.Problem,
		UserQuestion: env.Question,
		Options:      env.Options,
		IntegrationName:   env.Integration,
		IntegrationParams: env.Params,
	}

	if env.QuestionKind != "" {
		action.UserQuestionKind = types.UserQuestionKind(env.QuestionKind)
		action.IsBlocking = action.UserQuestionKind.IsBlocking()
	}

	return action, nil
}
