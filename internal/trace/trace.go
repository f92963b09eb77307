// Package trace records where each search query came from and what
// happened to it, grounded on the original implementation's
// search_trace module: one Trace per outbound query, a Collector
// aggregating a run's traces into per-origin reports.
package trace

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-deep-research/internal/types"
)

// OriginKind tags why a query was issued.
type OriginKind int

const (
	OriginUser OriginKind = iota
	OriginPersona
	OriginReflection
	OriginRefinement
	OriginFollowUp
)

// Origin describes the provenance of a single query.
type Origin struct {
	Kind           OriginKind
	PersonaName    string
	Iteration      int
	ParentTraceID  uuid.UUID
	FollowUpTopic  string
}

func (o Origin) String() string {
	switch o.Kind {
	case OriginUser:
		return "User"
	case OriginPersona:
		return fmt.Sprintf("Persona(%s)", o.PersonaName)
	case OriginReflection:
		return fmt.Sprintf("Reflection(#%d)", o.Iteration)
	case OriginRefinement:
		return fmt.Sprintf("Refinement(%s)", o.ParentTraceID.String()[:8])
	case OriginFollowUp:
		return fmt.Sprintf("FollowUp(%s)", o.FollowUpTopic)
	default:
		return "Unknown"
	}
}

// reportKey is the grouping key used by Collector.ReportByOrigin.
func (o Origin) reportKey() string {
	switch o.Kind {
	case OriginUser:
		return "User"
	case OriginPersona:
		return "Persona:" + o.PersonaName
	case OriginReflection:
		return "Reflection"
	case OriginRefinement:
		return "Refinement"
	case OriginFollowUp:
		return "FollowUp"
	default:
		return "Unknown"
	}
}

// Status is the outcome of a traced search operation.
type Status int

const (
	StatusInProgress Status = iota
	StatusSuccess
	StatusFailed
	StatusCancelled
	StatusSkipped
)

// Trace captures one outbound search query: who asked for it, which API
// served it, and what came back.
type Trace struct {
	TraceID           uuid.UUID
	ExecutionID       uuid.UUID
	Origin            Origin
	Query             types.SerpQuery
	APICalled         string
	RequestTimestamp  time.Time
	ResponseTimestamp time.Time
	Status            Status
	FailureReason     string
	ResultsCount      int
	BytesReceived     int
	URLsExtracted     []string
	Metadata          map[string]string
}

// New starts an in-progress trace for a query about to be sent.
func New(executionID uuid.UUID, query types.SerpQuery, origin Origin, api string) *Trace {
	return &Trace{
		TraceID:          uuid.New(),
		ExecutionID:      executionID,
		Origin:           origin,
		Query:            query,
		APICalled:        api,
		RequestTimestamp: time.Now(),
		Status:           StatusInProgress,
		Metadata:         make(map[string]string),
	}
}

// Complete marks the trace successful.
func (t *Trace) Complete(resultsCount, bytesReceived int, urls []string) {
	t.ResponseTimestamp = time.Now()
	t.Status = StatusSuccess
	t.ResultsCount = resultsCount
	t.BytesReceived = bytesReceived
	t.URLsExtracted = urls
}

// Fail marks the trace failed with reason.
func (t *Trace) Fail(reason string) {
	t.ResponseTimestamp = time.Now()
	t.Status = StatusFailed
	t.FailureReason = reason
}

// Cancel marks the trace cancelled (e.g. timeout).
func (t *Trace) Cancel(reason string) {
	t.ResponseTimestamp = time.Now()
	t.Status = StatusCancelled
	t.FailureReason = reason
}

// Skip marks the trace skipped (e.g. cache hit, never sent).
func (t *Trace) Skip(reason string) {
	t.ResponseTimestamp = time.Now()
	t.Status = StatusSkipped
	t.FailureReason = reason
}

// AddMetadata attaches a free-form key/value to the trace.
func (t *Trace) AddMetadata(key, value string) {
	t.Metadata[key] = value
}

// Latency reports the request-to-response duration, or false if the
// trace is still in progress.
func (t *Trace) Latency() (time.Duration, bool) {
	if t.ResponseTimestamp.IsZero() {
		return 0, false
	}
	d := t.ResponseTimestamp.Sub(t.RequestTimestamp)
	if d < 0 {
		d = 0
	}
	return d, true
}

func (t *Trace) IsSuccess() bool    { return t.Status == StatusSuccess }
func (t *Trace) IsInProgress() bool { return t.Status == StatusInProgress }

// Summary renders a one-line human-readable description of the trace.
func (t *Trace) Summary() string {
	latencyStr := "in progress"
	if d, ok := t.Latency(); ok {
		latencyStr = fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	return fmt.Sprintf("[%s] %s -> %s | %s | %d results | %d bytes | %s",
		t.TraceID.String()[:8], t.Origin, t.APICalled, t.Query.Q,
		t.ResultsCount, t.BytesReceived, latencyStr)
}

// Collector aggregates every trace produced during one research execution.
type Collector struct {
	ExecutionID   uuid.UUID
	OriginalQuery string
	StartedAt     time.Time
	FinishedAt    time.Time
	Traces        []*Trace
}

// NewCollector starts a Collector for a run.
func NewCollector(executionID uuid.UUID, originalQuery string) *Collector {
	return &Collector{
		ExecutionID:   executionID,
		OriginalQuery: originalQuery,
		StartedAt:     time.Now(),
	}
}

// Add appends an already-constructed trace.
func (c *Collector) Add(t *Trace) {
	c.Traces = append(c.Traces, t)
}

// StartTrace builds and appends a fresh in-progress trace, returning its
// index for later completion.
func (c *Collector) StartTrace(query types.SerpQuery, origin Origin, api string) int {
	c.Traces = append(c.Traces, New(c.ExecutionID, query, origin, api))
	return len(c.Traces) - 1
}

// CompleteTrace completes the trace at index, a no-op if out of range.
func (c *Collector) CompleteTrace(index, resultsCount, bytesReceived int, urls []string) {
	if index < 0 || index >= len(c.Traces) {
		return
	}
	c.Traces[index].Complete(resultsCount, bytesReceived, urls)
}

// FailTrace fails the trace at index, a no-op if out of range.
func (c *Collector) FailTrace(index int, reason string) {
	if index < 0 || index >= len(c.Traces) {
		return
	}
	c.Traces[index].Fail(reason)
}

// Finish stamps the collector's end time.
func (c *Collector) Finish() {
	c.FinishedAt = time.Now()
}

func (c *Collector) Len() int      { return len(c.Traces) }
func (c *Collector) IsEmpty() bool { return len(c.Traces) == 0 }

// SuccessfulTraces returns the subset that completed successfully.
func (c *Collector) SuccessfulTraces() []*Trace {
	var out []*Trace
	for _, t := range c.Traces {
		if t.IsSuccess() {
			out = append(out, t)
		}
	}
	return out
}

// FailedTraces returns the subset that failed.
func (c *Collector) FailedTraces() []*Trace {
	var out []*Trace
	for _, t := range c.Traces {
		if t.Status == StatusFailed {
			out = append(out, t)
		}
	}
	return out
}

// PersonaTraces returns traces originating from persona-expanded queries.
func (c *Collector) PersonaTraces() []*Trace {
	var out []*Trace
	for _, t := range c.Traces {
		if t.Origin.Kind == OriginPersona {
			out = append(out, t)
		}
	}
	return out
}

// TotalLatency sums latency across every completed trace.
func (c *Collector) TotalLatency() time.Duration {
	var total time.Duration
	for _, t := range c.Traces {
		if d, ok := t.Latency(); ok {
			total += d
		}
	}
	return total
}

// AvgLatency divides TotalLatency by the number of successful traces.
func (c *Collector) AvgLatency() time.Duration {
	successful := c.SuccessfulTraces()
	if len(successful) == 0 {
		return 0
	}
	return c.TotalLatency() / time.Duration(len(successful))
}

// TotalBytes sums bytes received across all traces.
func (c *Collector) TotalBytes() int {
	total := 0
	for _, t := range c.Traces {
		total += t.BytesReceived
	}
	return total
}

// TotalURLs sums extracted URL counts across all traces (with duplicates).
func (c *Collector) TotalURLs() int {
	total := 0
	for _, t := range c.Traces {
		total += len(t.URLsExtracted)
	}
	return total
}

// UniqueURLs returns the deduplicated set of URLs extracted across all
// traces.
func (c *Collector) UniqueURLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.Traces {
		for _, u := range t.URLsExtracted {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}

// SuccessRate is the fraction of traces that completed successfully.
func (c *Collector) SuccessRate() float64 {
	if len(c.Traces) == 0 {
		return 0
	}
	return float64(len(c.SuccessfulTraces())) / float64(len(c.Traces))
}

// Summary renders a multi-line human-readable report of the whole run.
func (c *Collector) Summary() string {
	var durationMs int64
	if !c.FinishedAt.IsZero() {
		durationMs = c.FinishedAt.Sub(c.StartedAt).Milliseconds()
	}
	return fmt.Sprintf(
		"Collector [%s]\nQuery: %q\nTotal traces: %d (%d success, %d failed)\nTotal latency: %.0fms | Avg: %.0fms\nTotal bytes: %d | Total URLs: %d (%d unique)\nSuccess rate: %.1f%%\nDuration: %dms",
		c.ExecutionID.String()[:8], c.OriginalQuery,
		len(c.Traces), len(c.SuccessfulTraces()), len(c.FailedTraces()),
		float64(c.TotalLatency().Milliseconds()), float64(c.AvgLatency().Milliseconds()),
		c.TotalBytes(), c.TotalURLs(), len(c.UniqueURLs()),
		c.SuccessRate()*100, durationMs,
	)
}

// OriginReport aggregates metrics for one query origin bucket.
type OriginReport struct {
	Count           int
	Successful      int
	Failed          int
	TotalLatencyMs  int64
	TotalBytes      int
	TotalURLs       int
}

func (r *OriginReport) addTrace(t *Trace) {
	r.Count++
	if t.IsSuccess() {
		r.Successful++
	} else if t.Status == StatusFailed {
		r.Failed++
	}
	if d, ok := t.Latency(); ok {
		r.TotalLatencyMs += d.Milliseconds()
	}
	r.TotalBytes += t.BytesReceived
	r.TotalURLs += len(t.URLsExtracted)
}

// AvgLatencyMs is the mean latency across the bucket's successful traces.
func (r *OriginReport) AvgLatencyMs() float64 {
	if r.Successful == 0 {
		return 0
	}
	return float64(r.TotalLatencyMs) / float64(r.Successful)
}

// ReportByOrigin buckets every trace by its origin, keyed "User",
// "Persona:<name>", "Reflection", "Refinement", or "FollowUp".
func (c *Collector) ReportByOrigin() map[string]*OriginReport {
	reports := make(map[string]*OriginReport)
	for _, t := range c.Traces {
		key := t.Origin.reportKey()
		r, ok := reports[key]
		if !ok {
			r = &OriginReport{}
			reports[key] = r
		}
		r.addTrace(t)
	}
	return reports
}
