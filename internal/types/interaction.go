package types

import "time"

// UserQuestionKind classifies an agent-to-user question raised by the
// interaction hub (§4.M). Clarification, Confirmation, and Preference
// block the step loop until answered; Suggestion does not.
type UserQuestionKind string

const (
	QuestionClarification UserQuestionKind = "clarification"
	QuestionConfirmation  UserQuestionKind = "confirmation"
	QuestionPreference    UserQuestionKind = "preference"
	QuestionSuggestion    UserQuestionKind = "suggestion"
)

// IsBlocking reports whether the loop must pause until a matching response
// arrives.
func (k UserQuestionKind) IsBlocking() bool {
	switch k {
	case QuestionClarification, QuestionConfirmation, QuestionPreference:
		return true
	default:
		return false
	}
}

// UserQuestion is a single agent-to-user question routed through the
// interaction hub.
type UserQuestion struct {
	ID        string
	Kind      UserQuestionKind
	Question  string
	Options   []string
	Context   string
	CreatedAt time.Time
	Think     string
}

// UserResponse answers a UserQuestion. QuestionID may be empty for a
// spontaneous response not tied to a pending question.
type UserResponse struct {
	QuestionID string
	Answer     string
	CreatedAt  time.Time
}
