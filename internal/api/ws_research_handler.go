package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-deep-research/internal/auth"
	"go-deep-research/internal/config"
	"go-deep-research/internal/types"
)

// wsUpgrader mirrors the teacher's ws_chat_handler upgrader: any origin is
// accepted since this runs behind an operator-controlled reverse proxy,
// not a public multi-tenant frontend.
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeWSConn serializes writes across the diary-streaming goroutine and
// the inbound-message reader, same reasoning as the teacher's safeWSConn.
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

type wsInbound struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type wsOutbound struct {
	Type       string            `json:"type"`
	Entry      *types.DiaryEntry `json:"entry,omitempty"`
	QuestionID string            `json:"question_id,omitempty"`
	Question   string            `json:"question,omitempty"`
	Options    []string          `json:"options,omitempty"`
	Answer     string            `json:"answer,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// WSResearchHandler streams a live session's diary over a websocket and
// accepts answers to blocking questions the agent raises, the way the
// teacher's WSChatHandler streams LLM tokens over its own connection.
func WSResearchHandler(cfg *config.Config, runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing JWT"})
			return
		}
		if _, err := auth.ParseJWT(cfg.Server.JWTSecret, token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid JWT"})
			return
		}

		id := c.Param("id")
		if _, ok := runner.State(id); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not active in this process"})
			return
		}

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("websocket upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer rawConn.Close()

		done := make(chan struct{})
		go streamDiary(conn, runner, id, done)
		readInbound(rawConn, runner, id)
		close(done)
	}
}

// streamDiary polls the live agent's diary and relays new entries until
// the session reaches a terminal state or the socket's reader loop exits.
func streamDiary(conn *safeWSConn, runner *Runner, id string, done <-chan struct{}) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			diary, ok := runner.Diary(id)
			if !ok {
				return
			}
			for ; sent < len(diary); sent++ {
				entry := diary[sent]
				if err := conn.WriteJSON(wsOutbound{Type: "diary", Entry: &entry}); err != nil {
					return
				}
			}

			state, ok := runner.State(id)
			if !ok {
				continue
			}
			switch state.Kind {
			case types.StateCompleted:
				conn.WriteJSON(wsOutbound{Type: "completed", Answer: state.Answer})
				return
			case types.StateFailed:
				conn.WriteJSON(wsOutbound{Type: "failed", Error: state.Reason})
				return
			case types.StateInputRequired:
				conn.WriteJSON(wsOutbound{Type: "input_required", QuestionID: state.QuestionID, Question: state.Question, Options: state.Options})
			}
		}
	}
}

// readInbound blocks reading answers to blocking questions from the
// client, forwarding each to the runner until the connection closes.
func readInbound(conn *websocket.Conn, runner *Runner, id string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		_ = runner.Respond(id, msg.QuestionID, msg.Answer)
	}
}
