package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-deep-research/internal/auth"
	"go-deep-research/internal/config"
	redisdb "go-deep-research/internal/redis"
)

func testAuthConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	cfg.Server.AdminUser = "admin"
	cfg.Server.AdminPasswordHash = hash
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 15
	return cfg
}

func testRedisClient(cfg *config.Config) *redis.Client {
	return redisdb.NewClient(cfg)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	cfg := testAuthConfig(t)
	rdb := testRedisClient(cfg)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", LoginHandler(cfg, rdb))

	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "wrong"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginHandler_Success(t *testing.T) {
	cfg := testAuthConfig(t)
	rdb := testRedisClient(cfg)
	defer auth.DeleteSession(rdb, adminUserID)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", LoginHandler(cfg, rdb))

	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "correct-horse"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Errorf("expected a token in the response, got: %s", w.Body.String())
	}
}
