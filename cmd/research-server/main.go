// Command research-server exposes the deep-research agent over HTTP:
// POST /research starts a run, GET /research/:id polls it, and
// GET /research/:id/ws streams its diary live. Grounded on the teacher's
// cmd/server/main.go wiring order (config, DB, Redis, router, listen).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go-deep-research/internal/agent"
	"go-deep-research/internal/api"
	"go-deep-research/internal/cache"
	"go-deep-research/internal/config"
	"go-deep-research/internal/db"
	"go-deep-research/internal/dedupe"
	"go-deep-research/internal/evaluate"
	"go-deep-research/internal/interaction"
	"go-deep-research/internal/llmclient"
	"go-deep-research/internal/metrics"
	"go-deep-research/internal/persona"
	"go-deep-research/internal/reader"
	redisdb "go-deep-research/internal/redis"
	"go-deep-research/internal/searchclient"
	"go-deep-research/internal/sessionstore"
	"go-deep-research/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "db init error: %v\n", err)
		os.Exit(1)
	}

	rdb := redisdb.NewClient(cfg)
	store := sessionstore.NewGormStore(db.DB)

	var vectors *vectorstore.Store
	if cfg.Qdrant.URL != "" {
		host, port := splitHostPort(cfg.Qdrant.URL)
		vectors, err = vectorstore.NewStore(context.Background(), host, port, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, uint64(cfg.Qdrant.VectorSize))
		if err != nil {
			log.Printf("[main] qdrant unavailable, similarity search disabled: %v", err)
			vectors = nil
		} else {
			defer vectors.Close()
		}
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
	localReader := reader.NewLocalReader(cfg.SearxNGTimeout(), "go-deep-research/1.0", 5)
	remoteReader := reader.NewRemoteReader(cfg.SearxNGTimeout(), "go-deep-research/1.0", "", 5)
	rd := reader.NewReader(localReader, remoteReader, reader.NewPDFExtractor(cfg.SearxNGTimeout(), 10))
	recorder := metrics.New()
	searchCache := cache.New[searchclient.SearchOutcome](5*time.Minute, 512, nil)

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

	factory := func(question string) agent.Dependencies {
		return agent.Dependencies{
			LLM:           llm,
			Search:        search,
			Reader:        rd,
			Personas:      persona.NewRegistry(),
			Dedupe:        dedupe.New(llm, cfg.Agent.DedupThreshold, cfg.Agent.DedupBatchSize),
			Evaluator:     evaluate.New(llm),
			RefEmbedder:   llm,
			Hub:           interaction.New(interaction.DefaultQueueCapacity),
			Tracker:       newTokenTracker(cfg.Agent.TokenBudget),
			Metrics:       recorder,
			Cache:         searchCache,
			SandboxLimits: defaultSandboxLimits(),
		}
	}

	runner := api.NewRunner(store, vectors, llm, factory, agentCfg)

	r := api.SetupRouter(cfg, rdb, runner)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("[main] starting research-server on %s", addr)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
