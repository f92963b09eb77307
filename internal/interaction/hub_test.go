package interaction

import (
	"context"
	"testing"
	"time"

	"go-deep-research/internal/types"
)

func TestAskAssignsIDAndEnqueues(t *testing.T) {
	h := New(4)
	q, err := h.Ask(types.UserQuestion{Kind: types.QuestionClarification, Question: "which one?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.ID == "" {
		t.Fatal("expected an assigned ID")
	}

	select {
	case got := <-h.Questions():
		if got.ID != q.ID {
			t.Fatalf("expected queued question ID %q, got %q", q.ID, got.ID)
		}
	default:
		t.Fatal("expected question to be queued")
	}
}

func TestRespondWakesBlockedWaiter(t *testing.T) {
	h := New(4)
	done := make(chan types.UserResponse, 1)
	errCh := make(chan error, 1)

	go func() {
		r, err := h.WaitForResponse(context.Background(), "q1", 2*time.Second)
		errCh <- err
		done <- r
	}()

	time.Sleep(10 * time.Millisecond)
	if err := h.Respond(types.UserResponse{QuestionID: "q1", Answer: "yes"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	r := <-done
	if r.Answer != "yes" {
		t.Fatalf("expected answer 'yes', got %q", r.Answer)
	}
}

func TestWaitForResponseFindsAlreadyQueuedResponse(t *testing.T) {
	h := New(4)
	if err := h.Respond(types.UserResponse{QuestionID: "q2", Answer: "no"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, err := h.WaitForResponse(context.Background(), "q2", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Answer != "no" {
		t.Fatalf("expected answer 'no', got %q", r.Answer)
	}
}

func TestWaitForResponseZeroTimeoutReturnsPromptly(t *testing.T) {
	h := New(4)
	start := time.Now()
	_, err := h.WaitForResponse(context.Background(), "nonexistent", 0)
	elapsed := time.Since(start)

	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("expected a prompt return, took %v", elapsed)
	}
}

func TestWaitForResponseRespectsContextCancellation(t *testing.T) {
	h := New(4)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := h.WaitForResponse(ctx, "q3", -1)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("expected WaitForResponse to return after context cancellation")
	}
}

func TestFindResponseForRemovesMatch(t *testing.T) {
	h := New(4)
	h.Respond(types.UserResponse{QuestionID: "a", Answer: "1"})
	h.Respond(types.UserResponse{QuestionID: "b", Answer: "2"})

	r, ok := h.FindResponseFor("a")
	if !ok || r.Answer != "1" {
		t.Fatalf("expected to find response a, got %+v ok=%v", r, ok)
	}

	if _, ok := h.FindResponseFor("a"); ok {
		t.Fatal("expected response a to have been removed")
	}

	remaining := h.Poll()
	if len(remaining) != 1 || remaining[0].QuestionID != "b" {
		t.Fatalf("expected only response b to remain, got %+v", remaining)
	}
}

func TestSpontaneousResponseIsQueued(t *testing.T) {
	h := New(4)
	if err := h.Respond(types.UserResponse{Answer: "unprompted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	polled := h.Poll()
	if len(polled) != 1 || polled[0].Answer != "unprompted" {
		t.Fatalf("expected spontaneous response to be queued, got %+v", polled)
	}
}
