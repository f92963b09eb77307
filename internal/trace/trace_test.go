package trace

import (
	"testing"

	"github.com/google/uuid"

	"go-deep-research/internal/types"
)

func sampleQuery() types.SerpQuery {
	return types.SerpQuery{Q: "test query"}
}

func TestNewTraceStartsInProgress(t *testing.T) {
	execID := uuid.New()
	tr := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")

	if tr.ExecutionID != execID {
		t.Fatalf("expected execution id %v, got %v", execID, tr.ExecutionID)
	}
	if !tr.IsInProgress() {
		t.Fatal("expected a freshly-created trace to be in progress")
	}
}

func TestTraceComplete(t *testing.T) {
	tr := New(uuid.New(), sampleQuery(), Origin{Kind: OriginUser}, "jina")
	tr.Complete(10, 5000, []string{"https://example.com"})

	if !tr.IsSuccess() {
		t.Fatal("expected success after Complete")
	}
	if tr.ResultsCount != 10 || tr.BytesReceived != 5000 || len(tr.URLsExtracted) != 1 {
		t.Fatalf("unexpected trace state: %+v", tr)
	}
	if _, ok := tr.Latency(); !ok {
		t.Fatal("expected a latency once completed")
	}
}

func TestTraceFail(t *testing.T) {
	tr := New(uuid.New(), sampleQuery(), Origin{Kind: OriginUser}, "jina")
	tr.Fail("API error")

	if tr.IsSuccess() {
		t.Fatal("expected failure, not success")
	}
	if tr.Status != StatusFailed || tr.FailureReason != "API error" {
		t.Fatalf("unexpected trace state: %+v", tr)
	}
}

func TestOriginDisplay(t *testing.T) {
	cases := []struct {
		origin Origin
		want   string
	}{
		{Origin{Kind: OriginUser}, "User"},
		{Origin{Kind: OriginPersona, PersonaName: "Skeptic"}, "Persona(Skeptic)"},
		{Origin{Kind: OriginReflection, Iteration: 3}, "Reflection(#3)"},
	}
	for _, c := range cases {
		if got := c.origin.String(); got != c.want {
			t.Errorf("Origin.String() = %q, want %q", got, c.want)
		}
	}
}

func TestCollectorAddAndTotals(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	t1 := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")
	t1.Complete(10, 5000, []string{"https://a.com"})

	t2 := New(execID, sampleQuery(), Origin{Kind: OriginPersona, PersonaName: "Skeptic"}, "jina")
	t2.Complete(5, 2500, []string{"https://b.com"})

	c.Add(t1)
	c.Add(t2)

	if c.Len() != 2 {
		t.Fatalf("expected 2 traces, got %d", c.Len())
	}
	if len(c.SuccessfulTraces()) != 2 {
		t.Fatalf("expected 2 successful traces, got %d", len(c.SuccessfulTraces()))
	}
	if c.TotalBytes() != 7500 {
		t.Fatalf("expected 7500 total bytes, got %d", c.TotalBytes())
	}
}

func TestCollectorStartAndCompleteTrace(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	idx := c.StartTrace(sampleQuery(), Origin{Kind: OriginUser}, "jina")
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	if !c.Traces[0].IsInProgress() {
		t.Fatal("expected newly started trace to be in progress")
	}

	c.CompleteTrace(idx, 10, 5000, []string{"https://example.com"})
	if !c.Traces[0].IsSuccess() {
		t.Fatal("expected trace to be successful after CompleteTrace")
	}
}

func TestCollectorUniqueURLs(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	t1 := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")
	t1.Complete(2, 1000, []string{"https://a.com", "https://b.com"})

	t2 := New(execID, sampleQuery(), Origin{Kind: OriginPersona, PersonaName: "Test"}, "jina")
	t2.Complete(2, 1000, []string{"https://b.com", "https://c.com"})

	c.Add(t1)
	c.Add(t2)

	if c.TotalURLs() != 4 {
		t.Fatalf("expected 4 total urls, got %d", c.TotalURLs())
	}
	if len(c.UniqueURLs()) != 3 {
		t.Fatalf("expected 3 unique urls, got %d", len(c.UniqueURLs()))
	}
}

func TestCollectorSuccessRate(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	success := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")
	success.Complete(10, 5000, nil)

	failed := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")
	failed.Fail("error")

	c.Add(success)
	c.Add(failed)

	if rate := c.SuccessRate(); rate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", rate)
	}
}

func TestCollectorReportByOrigin(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	userTrace := New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina")
	userTrace.Complete(10, 5000, nil)

	personaTrace := New(execID, sampleQuery(), Origin{Kind: OriginPersona, PersonaName: "Skeptic"}, "jina")
	personaTrace.Complete(5, 2500, nil)

	c.Add(userTrace)
	c.Add(personaTrace)

	report := c.ReportByOrigin()
	if report["User"].Count != 1 {
		t.Fatalf("expected User count 1, got %+v", report["User"])
	}
	if report["Persona:Skeptic"].Count != 1 {
		t.Fatalf("expected Persona:Skeptic count 1, got %+v", report["Persona:Skeptic"])
	}
}

func TestCollectorPersonaTraces(t *testing.T) {
	execID := uuid.New()
	c := NewCollector(execID, "test query")

	c.Add(New(execID, sampleQuery(), Origin{Kind: OriginUser}, "jina"))
	c.Add(New(execID, sampleQuery(), Origin{Kind: OriginPersona, PersonaName: "Skeptic"}, "jina"))
	c.Add(New(execID, sampleQuery(), Origin{Kind: OriginPersona, PersonaName: "Analyst"}, "jina"))

	if len(c.PersonaTraces()) != 2 {
		t.Fatalf("expected 2 persona traces, got %d", len(c.PersonaTraces()))
	}
}

func TestTraceSummaryContainsKeyFields(t *testing.T) {
	tr := New(uuid.New(), sampleQuery(), Origin{Kind: OriginUser}, "jina")
	tr.Complete(10, 5000, nil)

	s := tr.Summary()
	if !contains(s, "User") || !contains(s, "jina") || !contains(s, "test query") {
		t.Fatalf("summary missing expected fields: %s", s)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
