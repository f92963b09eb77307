package sessionstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-deep-research/internal/types"
)

// MemStore is an in-process Store for tests, where persisting across
// restarts is unnecessary. cmd/research-cli's run-without-a-server mode
// uses BoltStore instead.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]Session)}
}

func (m *MemStore) Create(ctx context.Context, id, question string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.sessions[id] = Session{
		ID:        id,
		Question:  question,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (m *MemStore) UpdateProgress(ctx context.Context, id string, diary []types.DiaryEntry, tokensUsed uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Diary = diary
	sess.TokensUsed = tokensUsed
	sess.UpdatedAt = time.Now()
	m.sessions[id] = sess
	return nil
}

func (m *MemStore) Complete(ctx context.Context, id, answer string, refs []types.Reference, tokensUsed uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Status = StatusCompleted
	sess.Answer = answer
	sess.References = refs
	sess.TokensUsed = tokensUsed
	sess.UpdatedAt = time.Now()
	m.sessions[id] = sess
	return nil
}

func (m *MemStore) Fail(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Status = StatusFailed
	sess.Error = reason
	sess.UpdatedAt = time.Now()
	m.sessions[id] = sess
	return nil
}

func (m *MemStore) AwaitingInput(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Status = StatusInputRequired
	sess.UpdatedAt = time.Now()
	m.sessions[id] = sess
	return nil
}

func (m *MemStore) Get(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemStore) List(ctx context.Context, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
