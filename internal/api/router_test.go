package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-deep-research/internal/config"
	redisdb "go-deep-research/internal/redis"
)

func TestSetupRouter_HealthIsPublic(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 15
	rdb := redisdb.NewClient(cfg)
	runner := testRunner(t)

	r := SetupRouter(cfg, rdb, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected /health to be reachable without auth, got %d", w.Code)
	}
}

func TestSetupRouter_ResearchRequiresAuth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 15
	rdb := redisdb.NewClient(cfg)
	runner := testRunner(t)

	r := SetupRouter(cfg, rdb, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/research", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}
}
