package sessionstore

import (
	"context"
	"testing"

	"go-deep-research/internal/types"
)

func TestMemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Create(ctx, "s1", "what is the capital of France?"); err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != StatusProcessing {
		t.Fatalf("expected processing status, got %s", sess.Status)
	}

	diary := []types.DiaryEntry{{Kind: types.DiarySearch, Summary: "searched"}}
	if err := store.UpdateProgress(ctx, "s1", diary, 42); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	refs := []types.Reference{{URL: "https://x.test", Title: "X"}}
	if err := store.Complete(ctx, "s1", "Paris", refs, 100); err != nil {
		t.Fatalf("complete: %v", err)
	}

	sess, err = store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get after complete: %v", err)
	}
	if sess.Status != StatusCompleted || sess.Answer != "Paris" {
		t.Fatalf("unexpected session after complete: %+v", sess)
	}
	if len(sess.Diary) != 1 || len(sess.References) != 1 {
		t.Fatalf("expected diary/references to persist: %+v", sess)
	}
}

func TestMemStoreGetMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemStore()
	if _, err := store.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreFailAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	store.Create(ctx, "a", "q1")
	store.Create(ctx, "b", "q2")
	if err := store.Fail(ctx, "a", "search timed out"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	sess, _ := store.Get(ctx, "a")
	if sess.Status != StatusFailed || sess.Error != "search timed out" {
		t.Fatalf("unexpected failed session: %+v", sess)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
}
