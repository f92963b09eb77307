// Package interaction implements the bidirectional question/response
// channel (bounded on the question side) between the agent loop and whatever is driving it (a
// CLI prompt, a websocket client). The hub never blocks the main loop
// except at the single designated wait point for a blocking question.
package interaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"go-deep-research/internal/types"
)

// questionIDs mints k-sortable question IDs. Node 1 is fine: a Hub serves
// exactly one run, never a distributed fleet of them, so collision across
// nodes is not a concern.
var questionIDs = mustSnowflakeNode(1)

func mustSnowflakeNode(n int64) *snowflake.Node {
	node, err := snowflake.NewNode(n)
	if err != nil {
		panic(err)
	}
	return node
}

// DefaultQueueCapacity bounds the question channel: Ask suspends (blocks)
// once it is full. Responses are queued in a slice with no bound, and
// Respond never blocks.
const DefaultQueueCapacity = 16

// ErrTimeout is returned by WaitForResponse when no matching response
// arrives before the deadline.
var ErrTimeout = errors.New("interaction: timed out waiting for response")

// ErrClosed is returned by Ask/Respond calls made after Close.
var ErrClosed = errors.New("interaction: hub is closed")

// Hub pairs an agent-to-user question queue with a user-to-agent response
// queue. One Hub serves one run.
type Hub struct {
	questions chan types.UserQuestion

	mu        sync.Mutex
	responses []types.UserResponse
	waiters   map[string]chan types.UserResponse
	closed    bool
}

// New builds a Hub with the given queue capacity. capacity <= 0 uses
// DefaultQueueCapacity.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Hub{
		questions: make(chan types.UserQuestion, capacity),
		waiters:   make(map[string]chan types.UserResponse),
	}
}

// Ask enqueues a question for the user, assigning it a fresh ID if q.ID is
// empty. Suspends if the question queue is full.
func (h *Hub) Ask(q types.UserQuestion) (types.UserQuestion, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return types.UserQuestion{}, ErrClosed
	}
	if q.ID == "" {
		q.ID = questionIDs.Generate().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	h.mu.Unlock()

	h.questions <- q
	return q, nil
}

// Questions exposes the outbound channel for a consumer (CLI prompt,
// websocket writer) to drain.
func (h *Hub) Questions() <-chan types.UserQuestion {
	return h.questions
}

// Respond delivers r to the hub: if a goroutine is blocked in
// WaitForResponse for r.QuestionID, it is woken directly; otherwise r is
// queued for a future Poll or FindResponseFor. A response with no
// QuestionID (spontaneous) is always queued.
func (h *Hub) Respond(r types.UserResponse) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	if r.QuestionID != "" {
		if waiter, ok := h.waiters[r.QuestionID]; ok {
			delete(h.waiters, r.QuestionID)
			waiter <- r
			return nil
		}
	}
	h.responses = append(h.responses, r)
	return nil
}

// Poll drains and returns every currently queued response, in arrival
// order, without blocking.
func (h *Hub) Poll() []types.UserResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.responses
	h.responses = nil
	return out
}

// FindResponseFor removes and returns the queued response matching
// questionID, if any has already arrived.
func (h *Hub) FindResponseFor(questionID string) (types.UserResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.responses {
		if r.QuestionID == questionID {
			h.responses = append(h.responses[:i], h.responses[i+1:]...)
			return r, true
		}
	}
	return types.UserResponse{}, false
}

// WaitForResponse blocks until a response for questionID arrives, ctx is
// cancelled, or timeout elapses. A negative timeout means no timeout
// beyond ctx; a zero timeout returns ErrTimeout promptly if no response
// is already queued, per the interaction-hub boundary behavior.
func (h *Hub) WaitForResponse(ctx context.Context, questionID string, timeout time.Duration) (types.UserResponse, error) {
	if r, ok := h.FindResponseFor(questionID); ok {
		return r, nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return types.UserResponse{}, ErrClosed
	}
	waitCh := make(chan types.UserResponse, 1)
	h.waiters[questionID] = waitCh
	h.mu.Unlock()

	var timeoutCh <-chan time.Time
	switch {
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	case timeout == 0:
		// Zero timeout: fire immediately so the call returns promptly
		// rather than blocking forever, matching the documented boundary
		// behavior for wait_for_response with a zero timeout.
		immediate := make(chan time.Time, 1)
		immediate <- time.Now()
		timeoutCh = immediate
	default:
		// Negative timeout: no deadline beyond ctx.
	}

	select {
	case r := <-waitCh:
		return r, nil
	case <-timeoutCh:
		h.mu.Lock()
		delete(h.waiters, questionID)
		h.mu.Unlock()
		return types.UserResponse{}, ErrTimeout
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.waiters, questionID)
		h.mu.Unlock()
		return types.UserResponse{}, ctx.Err()
	}
}

// Close marks the hub closed and closes the question channel; further
// Ask/Respond calls return ErrClosed. Pending waiters are not woken: they
// return only through their own ctx cancellation or timeout.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	close(h.questions)
}
