package cache

import (
	"testing"
	"time"

	"go-deep-research/internal/types"
)

func TestSetThenGetWhileNotExpired(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	key := types.SerpQuery{Q: "Golang Concurrency"}
	c.Set(key, "result-a")

	got, ok := c.Get(types.SerpQuery{Q: "  golang concurrency  "})
	if !ok {
		t.Fatal("expected a cache hit on a differently-cased/spaced but equivalent key")
	}
	if got != "result-a" {
		t.Fatalf("expected result-a, got %q", got)
	}
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	if _, ok := c.Get(types.SerpQuery{Q: "nothing here"}); ok {
		t.Fatal("expected a miss on an unset key")
	}
}

func TestGetAfterExpiryReturnsMissAndEvicts(t *testing.T) {
	c := New[string](10*time.Millisecond, 10, nil)
	key := types.SerpQuery{Q: "fresh news"}
	c.Set(key, "stale soon")

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Fatal("expected entry to have expired")
	}
	if c.Evictions() != 1 {
		t.Fatalf("expected one expiry eviction, got %d", c.Evictions())
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len=%d", c.Len())
	}
}

func TestEvictsLeastRecentlyAccessedOverCapacity(t *testing.T) {
	c := New[string](time.Minute, 2, nil)
	a := types.SerpQuery{Q: "a"}
	b := types.SerpQuery{Q: "b"}
	cc := types.SerpQuery{Q: "c"}

	c.Set(a, "A")
	c.Set(b, "B")

	// Touch a so it is more recently accessed than b.
	c.Get(a)

	c.Set(cc, "C")

	if _, ok := c.Get(b); ok {
		t.Fatal("expected b (least recently accessed) to have been evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get(cc); !ok {
		t.Fatal("expected newly set c to be present")
	}
}

func TestOverwritingExistingKeyDoesNotCountAsNewEntry(t *testing.T) {
	c := New[string](time.Minute, 2, nil)
	a := types.SerpQuery{Q: "a"}
	b := types.SerpQuery{Q: "b"}

	c.Set(a, "A1")
	c.Set(b, "B1")
	c.Set(a, "A2")

	if c.Len() != 2 {
		t.Fatalf("expected len 2 after overwrite, got %d", c.Len())
	}
	got, ok := c.Get(a)
	if !ok || got != "A2" {
		t.Fatalf("expected overwritten value A2, got %q ok=%v", got, ok)
	}
}

type fakeHook struct {
	hits, misses int
}

func (f *fakeHook) RecordCacheHit()  { f.hits++ }
func (f *fakeHook) RecordCacheMiss() { f.misses++ }

func TestMetricsHookRecordsHitAndMiss(t *testing.T) {
	hook := &fakeHook{}
	c := New[int](time.Minute, 10, hook)
	key := types.SerpQuery{Q: "weather today"}

	c.Get(key)
	c.Set(key, 42)
	c.Get(key)

	if hook.misses != 1 {
		t.Fatalf("expected 1 miss, got %d", hook.misses)
	}
	if hook.hits != 1 {
		t.Fatalf("expected 1 hit, got %d", hook.hits)
	}
}

func TestDistinctFiltersProduceDistinctKeys(t *testing.T) {
	c := New[string](time.Minute, 10, nil)
	base := types.SerpQuery{Q: "news"}
	withFilter := types.SerpQuery{Q: "news", TimeFilter: "day"}

	c.Set(base, "no filter")
	c.Set(withFilter, "day filter")

	if c.Len() != 2 {
		t.Fatalf("expected distinct entries for distinct filters, got len=%d", c.Len())
	}
	got, _ := c.Get(withFilter)
	if got != "day filter" {
		t.Fatalf("expected day filter value, got %q", got)
	}
}
