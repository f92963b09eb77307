// Package metrics collects rolling latency and throughput statistics for
// the agent's search subsystem, grounded on the original implementation's
// search_metrics module: atomic counters plus a bounded circular buffer
// of recent latencies for percentile calculation.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// LatencyBufferSize bounds the rolling latency window used for percentiles.
const LatencyBufferSize = 1000

// Recorder accumulates search/read metrics with atomic counters and a
// mutex-guarded latency ring buffer. Safe for concurrent record/read.
type Recorder struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu         sync.RWMutex
	latencies  []uint64
	latencyPos int

	totalOps       atomic.Uint64
	successfulOps  atomic.Uint64
	failedOps      atomic.Uint64
	totalResults   atomic.Uint64
	totalBytes     atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64
	totalLatencyMs atomic.Uint64
}

// New builds an empty Recorder.
func New() *Recorder {
	return &Recorder{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		latencies: make([]uint64, 0, LatencyBufferSize),
	}
}

// RecordOperation logs one completed operation (search, read, embed batch).
func (r *Recorder) RecordOperation(latencyMs uint64, success bool, resultsCount int, bytes int) {
	r.totalOps.Add(1)
	r.totalLatencyMs.Add(latencyMs)
	r.totalResults.Add(uint64(resultsCount))
	r.totalBytes.Add(uint64(bytes))
	if success {
		r.successfulOps.Add(1)
	} else {
		r.failedOps.Add(1)
	}

	r.mu.Lock()
	if len(r.latencies) < LatencyBufferSize {
		r.latencies = append(r.latencies, latencyMs)
	} else {
		r.latencies[r.latencyPos] = latencyMs
		r.latencyPos = (r.latencyPos + 1) % LatencyBufferSize
	}
	r.mu.Unlock()
}

// RecordCacheHit/RecordCacheMiss track the cache's hit ratio.
func (r *Recorder) RecordCacheHit()  { r.cacheHits.Add(1) }
func (r *Recorder) RecordCacheMiss() { r.cacheMisses.Add(1) }

func (r *Recorder) percentile(p float64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.latencies) == 0 {
		return 0
	}
	sorted := make([]uint64, len(r.latencies))
	copy(sorted, r.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int((p / 100.0) * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// P50/P95/P99 report latency percentiles over the current rolling window.
func (r *Recorder) P50() uint64 { return r.percentile(50) }
func (r *Recorder) P95() uint64 { return r.percentile(95) }
func (r *Recorder) P99() uint64 { return r.percentile(99) }

func (r *Recorder) successRate() float64 {
	total := r.totalOps.Load()
	if total == 0 {
		return 0
	}
	return float64(r.successfulOps.Load()) / float64(total)
}

func (r *Recorder) cacheHitRate() float64 {
	hits, misses := r.cacheHits.Load(), r.cacheMisses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Snapshot is an immutable view of a Recorder's state at one instant.
type Snapshot struct {
	Timestamp         time.Time
	TotalOps          uint64
	SuccessfulOps     uint64
	FailedOps         uint64
	SuccessRate       float64
	CacheHits         uint64
	CacheMisses       uint64
	CacheHitRate      float64
	TotalBytes        uint64
	TotalResults      uint64
	LatencyAvgMs      float64
	LatencyP50        uint64
	LatencyP95        uint64
	LatencyP99        uint64
}

// Snapshot captures the current state of r.
func (r *Recorder) Snapshot() Snapshot {
	total := r.totalOps.Load()
	var avg float64
	if total > 0 {
		avg = float64(r.totalLatencyMs.Load()) / float64(total)
	}
	return Snapshot{
		Timestamp:     time.Now(),
		TotalOps:      total,
		SuccessfulOps: r.successfulOps.Load(),
		FailedOps:     r.failedOps.Load(),
		SuccessRate:   r.successRate(),
		CacheHits:     r.cacheHits.Load(),
		CacheMisses:   r.cacheMisses.Load(),
		CacheHitRate:  r.cacheHitRate(),
		TotalBytes:    r.totalBytes.Load(),
		TotalResults:  r.totalResults.Load(),
		LatencyAvgMs:  avg,
		LatencyP50:    r.P50(),
		LatencyP95:    r.P95(),
		LatencyP99:    r.P99(),
	}
}

// Diff is the delta between two snapshots, newer minus older.
type Diff struct {
	OpsDiff         int64
	SuccessRateDiff float64
	CacheHitDiff    float64
	LatencyP50Diff  int64
	LatencyP95Diff  int64
}

// Diff compares s against other (an earlier snapshot), producing the
// change in each headline statistic.
func (s Snapshot) Diff(other Snapshot) Diff {
	return Diff{
		OpsDiff:         int64(s.TotalOps) - int64(other.TotalOps),
		SuccessRateDiff: s.SuccessRate - other.SuccessRate,
		CacheHitDiff:    s.CacheHitRate - other.CacheHitRate,
		LatencyP50Diff:  int64(s.LatencyP50) - int64(other.LatencyP50),
		LatencyP95Diff:  int64(s.LatencyP95) - int64(other.LatencyP95),
	}
}

// IsImprovement reports whether d represents a net-positive change: more
// or equal throughput, steady-or-better success/cache rates, steady-or-
// lower latency.
func (d Diff) IsImprovement() bool {
	return d.OpsDiff >= 0 &&
		d.SuccessRateDiff >= 0 &&
		d.CacheHitDiff >= 0 &&
		d.LatencyP50Diff <= 0 &&
		d.LatencyP95Diff <= 0
}
