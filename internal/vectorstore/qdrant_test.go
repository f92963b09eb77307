package vectorstore

import (
	"context"
	"os"
	"testing"
)

// TestStoreRoundTrip only runs against a live Qdrant instance; skipped
// unless QDRANT_TEST_ADDR is set, mirroring internal/db's
// TEST_DB_DSN-gated integration test since neither dependency has a
// meaningful in-process fake.
func TestStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("QDRANT_TEST_ADDR")
	if addr == "" {
		t.Skip("set QDRANT_TEST_ADDR to run a live Qdrant round-trip test")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, addr, 6334, "", "research_test", 4)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	id, err := store.UpsertSession(ctx, "sess-1", "what is the capital of France?", "Paris", vec)
	if err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty point id")
	}

	matches, err := store.SearchSimilar(ctx, vec, 5)
	if err != nil {
		t.Fatalf("SearchSimilar: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one match for the point just inserted")
	}
}
