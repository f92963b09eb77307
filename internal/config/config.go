// Package config loads the research agent's runtime configuration:
// environment variables first (the deployment model cmd/research-server
// and cmd/research-cli both run under), with an optional JSON file to
// override defaults for local development — generalized from the
// teacher's singleton (sync.Once) JSON-only loader.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// LLMConfig describes one configured LLM provider endpoint.
type LLMConfig struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	EmbeddingModel   string  `json:"embeddingModel"`
	APIBaseURL       string  `json:"apiBaseUrl"`
	EmbeddingBaseURL string  `json:"embeddingBaseUrl"`
	APIKey           string  `json:"apiKey"`
	Temperature      float64 `json:"temperature"`
}

// AgentConfig mirrors internal/agent.Config's policy knobs so they can be
// tuned per-deployment without a rebuild.
type AgentConfig struct {
	MinStepsBeforeAnswer   int     `json:"minStepsBeforeAnswer"`
	AllowDirectAnswer      bool    `json:"allowDirectAnswer"`
	MaxConsecutiveFailures int     `json:"maxConsecutiveFailures"`
	BeastModeBudgetFrac    float64 `json:"beastModeBudgetFrac"`
	MaxQueriesPerStep      int     `json:"maxQueriesPerStep"`
	MaxURLsPerStep         int     `json:"maxUrlsPerStep"`
	MaxReflectPerStep      int     `json:"maxReflectPerStep"`
	BeastMaxAttempts       int     `json:"beastMaxAttempts"`
	DedupThreshold         float64 `json:"dedupThreshold"`
	DedupBatchSize         int     `json:"dedupBatchSize"`
	TokenBudget            uint64  `json:"tokenBudget"`
}

// Config is the process-wide configuration for cmd/research-server and
// cmd/research-cli.
type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		JWTSecret string `json:"jwtSecret"`
		// AdminUser/AdminPasswordHash gate the one login endpoint the
		// server exposes; there is no multi-user store (see DESIGN.md,
		// internal/user deletion entry).
		AdminUser         string `json:"adminUser"`
		AdminPasswordHash string `json:"adminPasswordHash"`
	} `json:"server"`

	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`

	SQLite struct {
		Path string `json:"path"`
	} `json:"sqlite"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`

	Qdrant struct {
		URL        string `json:"url"`
		Collection string `json:"collection"`
		APIKey     string `json:"apiKey"`
		VectorSize int    `json:"vectorSize"`
	} `json:"qdrant"`

	LLM LLMConfig `json:"llm"`

	SearxNG struct {
		URL        string `json:"url"`
		RerankURL  string `json:"rerankUrl"`
		MaxResults int    `json:"maxResults"`
		Timeout    int    `json:"timeoutSeconds"`
	} `json:"searxng"`

	Agent AgentConfig `json:"agent"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads a JSON file and applies it over ambient defaults
// (singleton, mirroring the teacher's config loader; used by local/dev
// runs that want a committed config.json instead of exported env vars).
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		c := defaultConfig()
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		applyDefaults(&c)
		cfg = &c
	})
	return cfg, cfgErr
}

// LoadConfigFromEnv builds a Config entirely from environment variables
// (loading a .env file first, best-effort, the way the teacher's server
// does for local runs) — the primary loading path for
// cmd/research-server/cmd/research-cli in containerized deployments where
// no config.json is mounted.
func LoadConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	c := defaultConfig()

	c.Server.Host = envOr("RESEARCH_HOST", c.Server.Host)
	c.Server.Port = envIntOr("RESEARCH_PORT", c.Server.Port)
	c.Server.JWTSecret = envOr("RESEARCH_JWT_SECRET", c.Server.JWTSecret)
	c.Server.AdminUser = envOr("RESEARCH_ADMIN_USER", c.Server.AdminUser)
	c.Server.AdminPasswordHash = envOr("RESEARCH_ADMIN_PASSWORD_HASH", c.Server.AdminPasswordHash)

	c.Postgres.DSN = envOr("RESEARCH_POSTGRES_DSN", c.Postgres.DSN)
	c.SQLite.Path = envOr("RESEARCH_SQLITE_PATH", c.SQLite.Path)

	c.Redis.Addr = envOr("RESEARCH_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("RESEARCH_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envIntOr("RESEARCH_REDIS_DB", c.Redis.DB)

	c.Qdrant.URL = envOr("RESEARCH_QDRANT_URL", c.Qdrant.URL)
	c.Qdrant.Collection = envOr("RESEARCH_QDRANT_COLLECTION", c.Qdrant.Collection)
	c.Qdrant.APIKey = envOr("RESEARCH_QDRANT_API_KEY", c.Qdrant.APIKey)
	c.Qdrant.VectorSize = envIntOr("RESEARCH_QDRANT_VECTOR_SIZE", c.Qdrant.VectorSize)

	c.LLM.Provider = envOr("RESEARCH_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = envOr("RESEARCH_LLM_MODEL", c.LLM.Model)
	c.LLM.EmbeddingModel = envOr("RESEARCH_LLM_EMBEDDING_MODEL", c.LLM.EmbeddingModel)
	c.LLM.APIBaseURL = envOr("RESEARCH_LLM_API_BASE_URL", c.LLM.APIBaseURL)
	c.LLM.EmbeddingBaseURL = envOr("RESEARCH_LLM_EMBEDDING_BASE_URL", c.LLM.EmbeddingBaseURL)
	c.LLM.APIKey = envOr("RESEARCH_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Temperature = envFloatOr("RESEARCH_LLM_TEMPERATURE", c.LLM.Temperature)

	c.SearxNG.URL = envOr("RESEARCH_SEARXNG_URL", c.SearxNG.URL)
	c.SearxNG.RerankURL = envOr("RESEARCH_SEARXNG_RERANK_URL", c.SearxNG.RerankURL)
	c.SearxNG.MaxResults = envIntOr("RESEARCH_SEARXNG_MAX_RESULTS", c.SearxNG.MaxResults)
	c.SearxNG.Timeout = envIntOr("RESEARCH_SEARXNG_TIMEOUT_SECONDS", c.SearxNG.Timeout)

	c.Agent.TokenBudget = uint64(envIntOr("RESEARCH_AGENT_TOKEN_BUDGET", int(c.Agent.TokenBudget)))
	c.Agent.MaxURLsPerStep = envIntOr("RESEARCH_AGENT_MAX_URLS_PER_STEP", c.Agent.MaxURLsPerStep)
	c.Agent.MaxQueriesPerStep = envIntOr("RESEARCH_AGENT_MAX_QUERIES_PER_STEP", c.Agent.MaxQueriesPerStep)
	c.Agent.AllowDirectAnswer = envBoolOr("RESEARCH_AGENT_ALLOW_DIRECT_ANSWER", c.Agent.AllowDirectAnswer)

	if c.Server.JWTSecret == "" {
		return nil, errors.New("RESEARCH_JWT_SECRET must be set")
	}
	applyDefaults(&c)
	return &c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// defaultConfig seeds every field with a locally-runnable default before
// env or JSON overrides are applied.
func defaultConfig() Config {
	var c Config
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.SQLite.Path = "research.db"
	c.Redis.Addr = "localhost:6379"
	c.Qdrant.URL = "localhost:6334"
	c.Qdrant.Collection = "research_knowledge"
	c.Qdrant.VectorSize = 1536
	c.LLM.Provider = "openai"
	c.LLM.Model = "gpt-4o-mini"
	c.LLM.EmbeddingModel = "text-embedding-3-small"
	c.LLM.Temperature = 0.7
	c.SearxNG.URL = "http://searxng:8080/search"
	c.SearxNG.MaxResults = 10
	c.SearxNG.Timeout = 10
	c.Agent.MinStepsBeforeAnswer = 1
	c.Agent.MaxConsecutiveFailures = 3
	c.Agent.BeastModeBudgetFrac = 0.85
	c.Agent.MaxQueriesPerStep = 5
	c.Agent.MaxURLsPerStep = 5
	c.Agent.MaxReflectPerStep = 3
	c.Agent.BeastMaxAttempts = 3
	c.Agent.DedupThreshold = 0.85
	c.Agent.DedupBatchSize = 32
	c.Agent.TokenBudget = 200_000
	return c
}

// applyDefaults fills in zero-valued fields a partial JSON/env override
// left unset, the way the teacher's applyGrowerAIDefaults backfills its
// Phase 4 config tree.
func applyDefaults(c *Config) {
	def := defaultConfig()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = def.SQLite.Path
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = def.Qdrant.Collection
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = def.Qdrant.VectorSize
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = def.LLM.Temperature
	}
	if c.SearxNG.MaxResults == 0 {
		c.SearxNG.MaxResults = def.SearxNG.MaxResults
	}
	if c.SearxNG.Timeout == 0 {
		c.SearxNG.Timeout = def.SearxNG.Timeout
	}
	if c.Agent.MinStepsBeforeAnswer == 0 {
		c.Agent.MinStepsBeforeAnswer = def.Agent.MinStepsBeforeAnswer
	}
	if c.Agent.MaxConsecutiveFailures == 0 {
		c.Agent.MaxConsecutiveFailures = def.Agent.MaxConsecutiveFailures
	}
	if c.Agent.BeastModeBudgetFrac == 0 {
		c.Agent.BeastModeBudgetFrac = def.Agent.BeastModeBudgetFrac
	}
	if c.Agent.MaxQueriesPerStep == 0 {
		c.Agent.MaxQueriesPerStep = def.Agent.MaxQueriesPerStep
	}
	if c.Agent.MaxURLsPerStep == 0 {
		c.Agent.MaxURLsPerStep = def.Agent.MaxURLsPerStep
	}
	if c.Agent.MaxReflectPerStep == 0 {
		c.Agent.MaxReflectPerStep = def.Agent.MaxReflectPerStep
	}
	if c.Agent.BeastMaxAttempts == 0 {
		c.Agent.BeastMaxAttempts = def.Agent.BeastMaxAttempts
	}
	if c.Agent.DedupThreshold == 0 {
		c.Agent.DedupThreshold = def.Agent.DedupThreshold
	}
	if c.Agent.DedupBatchSize == 0 {
		c.Agent.DedupBatchSize = def.Agent.DedupBatchSize
	}
	if c.Agent.TokenBudget == 0 {
		c.Agent.TokenBudget = def.Agent.TokenBudget
	}
}

// SearxNGTimeout returns the configured SearxNG timeout as a time.Duration.
func (c *Config) SearxNGTimeout() time.Duration {
	return time.Duration(c.SearxNG.Timeout) * time.Second
}

// ResetConfigForTest resets the JSON-loader singleton (for testing only).
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
