package types

import "time"

// DiaryEntryKind tags the variant carried by a DiaryEntry.
type DiaryEntryKind string

const (
	DiarySearch       DiaryEntryKind = "search"
	DiaryRead         DiaryEntryKind = "read"
	DiaryReflect      DiaryEntryKind = "reflect"
	DiaryFailedAnswer DiaryEntryKind = "failed_answer"
	DiaryCoding       DiaryEntryKind = "coding"
	DiaryIntegration  DiaryEntryKind = "integration"
	DiaryUserQuestion DiaryEntryKind = "user_question"
)

// DiaryEntry is a single append-only record of what happened on a step.
// The diary never removes or reorders entries (see testable properties:
// diary monotonicity).
type DiaryEntry struct {
	Kind      DiaryEntryKind
	Step      int
	Timestamp time.Time
	Summary   string

	// Kind-specific payloads; only the field matching Kind is populated.
	Queries       []string
	URLsFound     int
	URLsRead      []string
	GapQuestions  []string
	EvalKind      string
	FailureReason string
	CodeOutput    string
	Integration   string
}
