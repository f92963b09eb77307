package evidence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"go-deep-research/internal/types"
)

func TestEvaluationEvidenceReportFinalizeAllPassed(t *testing.T) {
	r := NewEvaluationEvidenceReport(uuid.New(), "is the sky blue?", 120)
	r.SetRequiredEvaluations([]types.EvaluationKind{types.EvalDefinitive, types.EvalStrict})

	e1 := NewEvaluationEvidence(types.EvalDefinitive)
	e1.SetResult(true, 0.9, 40, 0)
	r.AddEvaluation(e1)

	e2 := NewEvaluationEvidence(types.EvalStrict)
	e2.SetResult(true, 0.85, 60, 1)
	r.AddEvaluation(e2)

	r.Finalize()

	if !r.FinalVerdict {
		t.Fatal("expected final verdict true when all evaluations passed")
	}
	if r.EarlyFailReason != "" {
		t.Fatalf("expected no early-fail reason, got %q", r.EarlyFailReason)
	}
}

func TestEvaluationEvidenceReportRecordsEarlyFail(t *testing.T) {
	r := NewEvaluationEvidenceReport(uuid.New(), "q", 10)

	failing := NewEvaluationEvidence(types.EvalFreshness)
	failing.SetResult(false, 0.3, 10, 0)
	r.AddEvaluation(failing)

	r.Finalize()

	if r.FinalVerdict {
		t.Fatal("expected final verdict false")
	}
	if r.EarlyFailReason == "" {
		t.Fatal("expected an early-fail reason to be recorded")
	}
}

func TestEvaluationEvidenceReportSuccessRateAndAvgConfidence(t *testing.T) {
	r := NewEvaluationEvidenceReport(uuid.New(), "q", 10)

	a := NewEvaluationEvidence(types.EvalDefinitive)
	a.SetResult(true, 1.0, 5, 0)
	r.AddEvaluation(a)

	b := NewEvaluationEvidence(types.EvalStrict)
	b.SetResult(false, 0.0, 5, 0)
	r.AddEvaluation(b)

	if rate := r.SuccessRate(); rate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", rate)
	}
	if avg := r.AvgConfidence(); avg != 0.5 {
		t.Fatalf("expected avg confidence 0.5, got %v", avg)
	}
	if len(r.FailedEvaluations()) != 1 {
		t.Fatalf("expected 1 failed evaluation, got %d", len(r.FailedEvaluations()))
	}
}

func TestEvaluationEvidenceReportToJSONRoundTrips(t *testing.T) {
	r := NewEvaluationEvidenceReport(uuid.New(), "q", 10)
	raw, err := r.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty JSON output")
	}
}

func TestSearchQueryEvidenceLatencyAndSuccess(t *testing.T) {
	q := NewSearchQueryEvidence(types.SerpQuery{Q: "weather"}, "serper")
	time.Sleep(5 * time.Millisecond)
	q.Complete(200, 10, 4096)

	if !q.IsSuccess() {
		t.Fatal("expected 200 status to count as success")
	}
	if q.Latency() <= 0 {
		t.Fatal("expected a positive latency")
	}
}

func TestSearchEvidenceReportAggregation(t *testing.T) {
	r := NewSearchEvidenceReport(uuid.New())

	q1 := NewSearchQueryEvidence(types.SerpQuery{Q: "a"}, "serper")
	q1.Complete(200, 5, 1000)
	q1.AddURL(NewURLEvidence("https://wikipedia.org/x", "wikipedia.org").WithBoosts(1.3, 1.0))
	r.AddQuery(q1)

	q2 := NewSearchQueryEvidence(types.SerpQuery{Q: "a"}, "serper")
	q2.FromCache = true
	q2.Complete(200, 5, 0)
	q2.AddURL(NewURLEvidence("https://wikipedia.org/x", "wikipedia.org"))
	r.AddQuery(q2)

	if r.TotalAPICalls() != 1 {
		t.Fatalf("expected 1 API call (the other was cached), got %d", r.TotalAPICalls())
	}
	if r.TotalBytesTransferred() != 1000 {
		t.Fatalf("expected 1000 bytes, got %d", r.TotalBytesTransferred())
	}
	if len(r.UniqueURLs()) != 1 {
		t.Fatalf("expected 1 unique url (deduped), got %d", len(r.UniqueURLs()))
	}
	if rate := r.CacheHitRate(); rate != 0.5 {
		t.Fatalf("expected cache hit rate 0.5, got %v", rate)
	}
}

func TestNewLatencyStatsEmpty(t *testing.T) {
	stats := NewLatencyStats(nil)
	if stats.Count != 0 || stats.Avg != 0 {
		t.Fatalf("expected zero stats for empty input, got %+v", stats)
	}
}

func TestNewLatencyStatsComputesMinMaxAvg(t *testing.T) {
	stats := NewLatencyStats([]time.Duration{
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
	})
	if stats.Min != 10*time.Millisecond || stats.Max != 30*time.Millisecond {
		t.Fatalf("unexpected min/max: %+v", stats)
	}
	if stats.Avg != 20*time.Millisecond {
		t.Fatalf("expected avg 20ms, got %v", stats.Avg)
	}
}
