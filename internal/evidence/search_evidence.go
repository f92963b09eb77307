package evidence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-deep-research/internal/types"
)

// URLEvidence records the ranking factors applied to one extracted URL.
type URLEvidence struct {
	URL           string
	Hostname      string
	HostnameBoost float64
	PathBoost     float64
	FinalScore    float64
}

// NewURLEvidence starts a neutral-score evidence record for url.
func NewURLEvidence(url, hostname string) URLEvidence {
	return URLEvidence{URL: url, Hostname: hostname, HostnameBoost: 1.0, PathBoost: 1.0, FinalScore: 1.0}
}

// WithBoosts applies the hostname/path boosts and recomputes FinalScore.
func (u URLEvidence) WithBoosts(hostnameBoost, pathBoost float64) URLEvidence {
	u.HostnameBoost = hostnameBoost
	u.PathBoost = pathBoost
	u.FinalScore = hostnameBoost * pathBoost
	return u
}

// SearchQueryEvidence records one outbound query's request/response and
// the URLs it surfaced.
type SearchQueryEvidence struct {
	QueryID       uuid.UUID
	Query         types.SerpQuery
	SourcePersona string
	APIEndpoint   string
	RequestTime   time.Time
	ResponseTime  time.Time
	HTTPStatus    int
	ResultsCount  int
	BytesReceived int
	URLsExtracted []URLEvidence
	FromCache     bool
}

// NewSearchQueryEvidence starts a record for an about-to-be-sent query.
func NewSearchQueryEvidence(query types.SerpQuery, apiEndpoint string) *SearchQueryEvidence {
	now := time.Now()
	return &SearchQueryEvidence{
		QueryID:      uuid.New(),
		Query:        query,
		APIEndpoint:  apiEndpoint,
		RequestTime:  now,
		ResponseTime: now,
	}
}

// WithPersona tags the query as persona-originated.
func (e *SearchQueryEvidence) WithPersona(persona string) *SearchQueryEvidence {
	e.SourcePersona = persona
	return e
}

// Complete records the response side of the query.
func (e *SearchQueryEvidence) Complete(status, resultsCount, bytes int) {
	e.ResponseTime = time.Now()
	e.HTTPStatus = status
	e.ResultsCount = resultsCount
	e.BytesReceived = bytes
}

// AddURL appends one extracted URL's evidence.
func (e *SearchQueryEvidence) AddURL(u URLEvidence) {
	e.URLsExtracted = append(e.URLsExtracted, u)
}

// Latency is the request-to-response duration.
func (e *SearchQueryEvidence) Latency() time.Duration {
	d := e.ResponseTime.Sub(e.RequestTime)
	if d < 0 {
		d = 0
	}
	return d
}

// IsSuccess reports whether the HTTP status is in the 2xx range.
func (e *SearchQueryEvidence) IsSuccess() bool {
	return e.HTTPStatus >= 200 && e.HTTPStatus < 300
}

// SearchEvidenceReport aggregates every query sent during one research
// execution's search phase.
type SearchEvidenceReport struct {
	ExecID        uuid.UUID
	CreatedAt     time.Time
	QueriesSent   []*SearchQueryEvidence
}

// NewSearchEvidenceReport starts a report for one execution.
func NewSearchEvidenceReport(executionID uuid.UUID) *SearchEvidenceReport {
	return &SearchEvidenceReport{ExecID: executionID, CreatedAt: time.Now()}
}

// AddQuery appends one query's evidence.
func (r *SearchEvidenceReport) AddQuery(q *SearchQueryEvidence) {
	r.QueriesSent = append(r.QueriesSent, q)
}

// TotalAPICalls is the number of queries actually sent (cache hits
// excluded, since they skipped the API).
func (r *SearchEvidenceReport) TotalAPICalls() int {
	count := 0
	for _, q := range r.QueriesSent {
		if !q.FromCache {
			count++
		}
	}
	return count
}

// TotalBytesTransferred sums bytes received across all queries.
func (r *SearchEvidenceReport) TotalBytesTransferred() int {
	total := 0
	for _, q := range r.QueriesSent {
		total += q.BytesReceived
	}
	return total
}

// LatencyStats computes latency statistics over non-cached queries.
func (r *SearchEvidenceReport) LatencyStats() LatencyStats {
	var samples []time.Duration
	for _, q := range r.QueriesSent {
		if !q.FromCache {
			samples = append(samples, q.Latency())
		}
	}
	return NewLatencyStats(samples)
}

// UniqueURLs returns the deduplicated set of URLs surfaced across every
// query in the report.
func (r *SearchEvidenceReport) UniqueURLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range r.QueriesSent {
		for _, u := range q.URLsExtracted {
			if !seen[u.URL] {
				seen[u.URL] = true
				out = append(out, u.URL)
			}
		}
	}
	return out
}

// CacheHitRate is the fraction of queries served from cache.
func (r *SearchEvidenceReport) CacheHitRate() float64 {
	if len(r.QueriesSent) == 0 {
		return 0
	}
	hits := 0
	for _, q := range r.QueriesSent {
		if q.FromCache {
			hits++
		}
	}
	return float64(hits) / float64(len(r.QueriesSent))
}

// ExecutionID implements Report.
func (r *SearchEvidenceReport) ExecutionID() uuid.UUID { return r.ExecID }

// Timestamp implements Report.
func (r *SearchEvidenceReport) Timestamp() time.Time { return r.CreatedAt }

// Summary implements Report.
func (r *SearchEvidenceReport) Summary() string {
	stats := r.LatencyStats()
	lines := []string{
		fmt.Sprintf("SearchEvidenceReport [%s]", r.ExecID),
		fmt.Sprintf("Queries Sent: %d (%d API calls, %.1f%% cache hit)", len(r.QueriesSent), r.TotalAPICalls(), r.CacheHitRate()*100),
		fmt.Sprintf("Bytes Transferred: %d", r.TotalBytesTransferred()),
		fmt.Sprintf("Unique URLs: %d", len(r.UniqueURLs())),
		fmt.Sprintf("Latency: avg=%s min=%s max=%s", stats.Avg, stats.Min, stats.Max),
	}
	return strings.Join(lines, "\n")
}

// ToJSON implements Report.
func (r *SearchEvidenceReport) ToJSON() (json.RawMessage, error) {
	return json.Marshal(r)
}

var _ Report = (*SearchEvidenceReport)(nil)
