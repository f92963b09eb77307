package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/types"
)

// hintHeader wraps the analyzer's improvement suggestion so the prompt
// builder can splice it into the system block unambiguously.
const hintHeader = "\n--- IMPROVEMENT HINT (from step %d analysis) ---\n%s\n--- END HINT ---\n\n"

// runAnalyzer asks the model to recap what went wrong over the last few
// diary entries and produce one improvement suggestion, then stashes it
// for the next prompt build. Runs off the main loop goroutine; never
// blocks Step.
func (a *Agent) runAnalyzer(llm llmclient.Client, diary []types.DiaryEntry, atStep int) {
	defer func() {
		a.analyzerMu.Lock()
		a.analyzerRunning = false
		a.analyzerMu.Unlock()
		if r := recover(); r != nil {
			log.Printf("[agent] analyzer panic recovered: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prompt := llmclient.Prompt{
		System: "Summarize why recent answer attempts failed and suggest one concrete change for the next attempt. Respond with the suggestion only, no preamble.",
		User:   recentFailureSummary(diary),
	}

	result, err := llm.GenerateAnswer(ctx, prompt, 0.3)
	if err != nil {
		log.Printf("[agent] analyzer GenerateAnswer error: %v", err)
		return
	}

	improvement := strings.TrimSpace(result.Answer)
	if improvement == "" {
		return
	}

	a.analyzerMu.Lock()
	a.pendingHint = fmt.Sprintf(hintHeader, atStep, improvement)
	a.analyzerMu.Unlock()
}

// recentFailureSummary renders the failed-answer diary entries as the
// analyzer's input, most recent last.
func recentFailureSummary(diary []types.DiaryEntry) string {
	var b strings.Builder
	for _, e := range diary {
		if e.Kind != types.DiaryFailedAnswer {
			continue
		}
		fmt.Fprintf(&b, "step %d: %s (%s)\n", e.Step, e.FailureReason, e.EvalKind)
	}
	if b.Len() == 0 {
		return "No failed-answer entries recorded yet."
	}
	return b.String()
}
