package metrics

import "testing"

func TestRecordOperationAccumulates(t *testing.T) {
	r := New()
	r.RecordOperation(100, true, 5, 1000)
	r.RecordOperation(200, false, 0, 500)

	snap := r.Snapshot()
	if snap.TotalOps != 2 {
		t.Fatalf("expected 2 ops, got %d", snap.TotalOps)
	}
	if snap.SuccessfulOps != 1 || snap.FailedOps != 1 {
		t.Fatalf("expected 1 success 1 failure, got %+v", snap)
	}
	if snap.TotalBytes != 1500 {
		t.Fatalf("expected 1500 bytes, got %d", snap.TotalBytes)
	}
}

func TestPercentilesOverKnownDistribution(t *testing.T) {
	r := New()
	for i := 1; i <= 100; i++ {
		r.RecordOperation(uint64(i), true, 1, 1)
	}

	if p50 := r.P50(); p50 < 45 || p50 > 55 {
		t.Fatalf("expected p50 near 50, got %d", p50)
	}
	if p99 := r.P99(); p99 < 95 {
		t.Fatalf("expected p99 near the top of the distribution, got %d", p99)
	}
}

func TestPercentileEmptyBufferReturnsZero(t *testing.T) {
	r := New()
	if r.P50() != 0 || r.P95() != 0 || r.P99() != 0 {
		t.Fatal("expected zero percentiles on an empty recorder")
	}
}

func TestLatencyBufferEvictsOldestPastCapacity(t *testing.T) {
	r := New()
	for i := 0; i < LatencyBufferSize+10; i++ {
		r.RecordOperation(uint64(i), true, 0, 0)
	}
	r.mu.RLock()
	size := len(r.latencies)
	r.mu.RUnlock()
	if size != LatencyBufferSize {
		t.Fatalf("expected buffer capped at %d, got %d", LatencyBufferSize, size)
	}
}

func TestCacheHitRate(t *testing.T) {
	r := New()
	r.RecordCacheHit()
	r.RecordCacheHit()
	r.RecordCacheMiss()

	snap := r.Snapshot()
	if snap.CacheHitRate < 0.66 || snap.CacheHitRate > 0.67 {
		t.Fatalf("expected hit rate ~0.667, got %v", snap.CacheHitRate)
	}
}

func TestSnapshotDiffIsZeroAgainstItself(t *testing.T) {
	r := New()
	r.RecordOperation(50, true, 1, 10)
	snap := r.Snapshot()

	diff := snap.Diff(snap)
	if diff.OpsDiff != 0 || diff.SuccessRateDiff != 0 || diff.LatencyP50Diff != 0 {
		t.Fatalf("expected zero diff against self, got %+v", diff)
	}
	if !diff.IsImprovement() {
		t.Fatal("expected a zero diff to count as a (non-negative) improvement")
	}
}

func TestDiffDetectsRegression(t *testing.T) {
	older := Snapshot{TotalOps: 10, SuccessRate: 0.9, LatencyP50: 50, LatencyP95: 100}
	newer := Snapshot{TotalOps: 12, SuccessRate: 0.7, LatencyP50: 80, LatencyP95: 150}

	diff := newer.Diff(older)
	if diff.IsImprovement() {
		t.Fatal("expected regression in success rate and latency to not count as improvement")
	}
}
