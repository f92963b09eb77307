// Package evidence builds per-subsystem structured audit reports — what a
// search round or evaluation pass actually did, not just its outcome.
// Grounded on the original implementation's evidence module: a common
// Report interface plus one concrete report per subsystem.
package evidence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the common shape every subsystem's audit report satisfies.
type Report interface {
	ExecutionID() uuid.UUID
	Timestamp() time.Time
	Summary() string
	ToJSON() (json.RawMessage, error)
}

// LatencyStats summarizes a distribution of observed latencies.
type LatencyStats struct {
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	Total time.Duration
	Count int
}

// NewLatencyStats computes stats over a set of samples; returns a zero
// value if samples is empty.
func NewLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	stats := LatencyStats{Min: samples[0], Max: samples[0], Count: len(samples)}
	for _, s := range samples {
		stats.Total += s
		if s < stats.Min {
			stats.Min = s
		}
		if s > stats.Max {
			stats.Max = s
		}
	}
	stats.Avg = stats.Total / time.Duration(len(samples))
	return stats
}
