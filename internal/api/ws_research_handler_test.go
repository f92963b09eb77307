package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-deep-research/internal/auth"
	"go-deep-research/internal/config"
)

func TestWSResearchHandler_MissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	runner := testRunner(t)

	r := gin.New()
	r.GET("/research/:id/ws", WSResearchHandler(cfg, runner))

	s := httptest.NewServer(r)
	defer s.Close()

	wsURL := "ws" + s.URL[4:] + "/research/some-id/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401, got response: %+v", resp)
	}
}

func TestWSResearchHandler_StreamsDiaryUntilCompleted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	runner := testRunner(t)

	id, err := runner.Start(context.Background(), "what is idiomatic Go?")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	r := gin.New()
	r.GET("/research/:id/ws", WSResearchHandler(cfg, runner))

	s := httptest.NewServer(r)
	defer s.Close()

	token, err := auth.GenerateJWT(cfg.Server.JWTSecret, 1, "admin", "admin", time.Minute)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}

	wsURL := "ws" + s.URL[4:] + "/research/" + id + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsOutbound
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("expected a completed message before the socket closed: %v", err)
		}
		if msg.Type == "completed" {
			return
		}
	}
}
