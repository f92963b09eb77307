// Package sessionstore persists research runs so cmd/research-server can
// answer GET /research/:id after a restart and so cmd/research-cli can
// resume polling a run it submitted earlier. Grounded on the teacher's
// gorm-backed internal/db models (internal/user.User, internal/chat.Chat)
// generalized from chat/user records to research-session records, with
// diary and reference payloads stored as gorm.io/datatypes.JSON the way
// the teacher's memory package stores structured blobs.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"go-deep-research/internal/types"
)

// Status mirrors types.AgentStateKind but is the stored, string-typed
// projection a client polls for.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusInputRequired Status = "input_required"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// ErrNotFound is returned by Get when no session with that ID exists.
var ErrNotFound = errors.New("sessionstore: session not found")

// Session is the persisted view of one research run.
type Session struct {
	ID         string
	Question   string
	Status     Status
	Answer     string
	References []types.Reference
	Diary      []types.DiaryEntry
	Error      string
	TokensUsed uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the persistence boundary cmd/research-server and
// cmd/research-cli depend on; GormStore is the production implementation,
// MemStore backs tests that don't want a real database.
type Store interface {
	Create(ctx context.Context, id, question string) error
	UpdateProgress(ctx context.Context, id string, diary []types.DiaryEntry, tokensUsed uint64) error
	Complete(ctx context.Context, id string, answer string, refs []types.Reference, tokensUsed uint64) error
	Fail(ctx context.Context, id string, reason string) error
	AwaitingInput(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context, limit int) ([]Session, error)
}
