package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"go-deep-research/internal/agent"
	"go-deep-research/internal/cache"
	"go-deep-research/internal/config"
	"go-deep-research/internal/dedupe"
	"go-deep-research/internal/evaluate"
	"go-deep-research/internal/interaction"
	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/persona"
	"go-deep-research/internal/reader"
	"go-deep-research/internal/sandbox"
	"go-deep-research/internal/searchclient"
	"go-deep-research/internal/sessionstore"
	"go-deep-research/internal/types"
)

// localHistoryPath returns where run-without-a-server invocations keep
// their bbolt session history, so a later `research-cli list`/`get`
// without --server can still see them.
func localHistoryPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, ".research-cli", "history.db")
}

func openLocalHistory() *sessionstore.BoltStore {
	path := localHistoryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		log.Printf("[research-cli] local history disabled: %v", err)
		return nil
	}
	store, err := sessionstore.OpenBoltStore(path)
	if err != nil {
		log.Printf("[research-cli] local history disabled: %v", err)
		return nil
	}
	return store
}

func newRunCommand() *cobra.Command {
	var serverURL string
	var configPath string

	cmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Run a research question and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				return runAgainstServer(cmd.Context(), serverURL, args[0])
			}
			return runInProcess(cmd.Context(), configPath, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of a running research-server; omit to run in-process")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file; defaults to environment variables")
	return cmd
}

// runInProcess drives a single agent.Agent to completion locally, printing
// each diary entry as it happens and ticking an indeterminate progress bar
// since the step count is unknown in advance.
func runInProcess(ctx context.Context, configPath, question string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	llm := llmclient.NewHTTPClient(llmclient.Config{
		Provider:         llmclient.Provider(cfg.LLM.Provider),
		Model:            cfg.LLM.Model,
		EmbeddingModel:   cfg.LLM.EmbeddingModel,
		APIBaseURL:       cfg.LLM.APIBaseURL,
		EmbeddingBaseURL: cfg.LLM.EmbeddingBaseURL,
		APIKey:           cfg.LLM.APIKey,
		Temperature:      cfg.LLM.Temperature,
	})
	search := searchclient.NewSearXNGClient(cfg.SearxNG.URL, cfg.SearxNG.RerankURL, cfg.SearxNGTimeout())
	rd := reader.NewReader(
		reader.NewLocalReader(cfg.SearxNGTimeout(), "go-deep-research-cli/1.0", 5),
		reader.NewRemoteReader(cfg.SearxNGTimeout(), "go-deep-research-cli/1.0", "", 5),
		reader.NewPDFExtractor(cfg.SearxNGTimeout(), 10),
	)

	deps := agent.Dependencies{
		LLM:           llm,
		Search:        search,
		Reader:        rd,
		Personas:      persona.NewRegistry(),
		Dedupe:        dedupe.New(llm, cfg.Agent.DedupThreshold, cfg.Agent.DedupBatchSize),
		Evaluator:     evaluate.New(llm),
		RefEmbedder:   llm,
		Hub:           interaction.New(interaction.DefaultQueueCapacity),
		Tracker:       types.NewTokenTracker(cfg.Agent.TokenBudget),
		Cache:         cache.New[searchclient.SearchOutcome](5*time.Minute, 512, nil),
		SandboxLimits: sandbox.DefaultLimits(),
	}

	agentCfg := agent.Config{
		MinStepsBeforeAnswer:   cfg.Agent.MinStepsBeforeAnswer,
		AllowDirectAnswer:      cfg.Agent.AllowDirectAnswer,
		MaxConsecutiveFailures: cfg.Agent.MaxConsecutiveFailures,
		BeastModeBudgetFrac:    cfg.Agent.BeastModeBudgetFrac,
		MaxQueriesPerStep:      cfg.Agent.MaxQueriesPerStep,
		MaxURLsPerStep:         cfg.Agent.MaxURLsPerStep,
		MaxReflectPerStep:      cfg.Agent.MaxReflectPerStep,
		BeastMaxAttempts:       cfg.Agent.BeastMaxAttempts,
		DedupThreshold:         cfg.Agent.DedupThreshold,
		DedupBatchSize:         cfg.Agent.DedupBatchSize,
	}

	ag := agent.New(question, deps, agentCfg)

	history := openLocalHistory()
	sessionID := uuid.NewString()
	if history != nil {
		defer history.Close()
		if err := history.Create(ctx, sessionID, question); err != nil {
			log.Printf("[research-cli] local history disabled: %v", err)
			history = nil
		}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("researching"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)
	defer bar.Finish()

	resultCh := make(chan types.AgentState, 1)
	go func() { resultCh <- ag.Run(ctx) }()

	printed := 0
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case final := <-resultCh:
			printDiary(ag.Diary()[printed:])
			bar.Finish()
			recordFinal(ctx, history, sessionID, final, deps)
			return printFinal(final)
		case <-ticker.C:
			diary := ag.Diary()
			printDiary(diary[printed:])
			printed = len(diary)
			bar.Add(1)
			if history != nil {
				_ = history.UpdateProgress(ctx, sessionID, diary, 0)
			}
		}
	}
}

// recordFinal persists the terminal agent state to the local history
// store, if one is open. Failures are logged, not fatal: the run already
// printed its answer to stdout.
func recordFinal(ctx context.Context, history *sessionstore.BoltStore, id string, final types.AgentState, deps agent.Dependencies) {
	if history == nil {
		return
	}
	tokensUsed := uint64(0)
	if deps.Tracker != nil {
		tokensUsed = deps.Tracker.Used()
	}
	var err error
	switch final.Kind {
	case types.StateCompleted:
		err = history.Complete(ctx, id, final.Answer, final.References, tokensUsed)
	case types.StateFailed:
		err = history.Fail(ctx, id, final.Reason)
	}
	if err != nil {
		log.Printf("[research-cli] recording session %s to local history: %v", id, err)
	}
}

func printDiary(entries []types.DiaryEntry) {
	for _, e := range entries {
		fmt.Fprintf(os.Stderr, "\n[%s] %s\n", e.Kind, e.Summary)
	}
}

func printFinal(state types.AgentState) error {
	switch state.Kind {
	case types.StateCompleted:
		fmt.Println(state.Answer)
		if len(state.References) > 0 {
			fmt.Println("\nReferences:")
			for _, r := range state.References {
				fmt.Printf("- %s (%s)\n", r.Title, r.URL)
			}
		}
		return nil
	case types.StateFailed:
		return fmt.Errorf("research failed: %s", state.Reason)
	default:
		return fmt.Errorf("research ended in unexpected state: %s", state.Kind)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.LoadConfigFromEnv()
}
