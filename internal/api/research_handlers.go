package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-deep-research/internal/sessionstore"
)

type createResearchRequest struct {
	Question string `json:"question" binding:"required"`
}

type respondRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

func sessionToJSON(s sessionstore.Session) gin.H {
	return gin.H{
		"id":          s.ID,
		"question":    s.Question,
		"status":      s.Status,
		"answer":      s.Answer,
		"references":  s.References,
		"diary":       s.Diary,
		"error":       s.Error,
		"tokens_used": s.TokensUsed,
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
	}
}

// POST /research starts a new session and returns its ID immediately; the
// agent continues running in the background, the way the teacher's
// CreateChatHandler returns a chat row before the first LLM token arrives.
func CreateResearchHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		id, err := runner.Start(c.Request.Context(), req.Question)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"id": id, "status": sessionstore.StatusProcessing})
	}
}

// GET /research lists recent sessions, newest first.
func ListResearchHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		sessions, err := runner.List(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionToJSON(s))
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	}
}

// GET /research/:id returns one session's current state.
func GetResearchHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		session, err := runner.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, sessionstore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessionToJSON(session))
	}
}

// POST /research/:id/respond delivers an answer to a blocking question the
// agent raised via AskUser, unblocking its step loop.
func RespondResearchHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var req respondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := runner.Respond(id, req.QuestionID, req.Answer); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	}
}

// GET /research/:id/similar finds past completed sessions whose
// question+answer embedding is closest to id's, via the vectorstore.
// Returns 404 when no Qdrant endpoint is configured for this deployment.
func SimilarResearchHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		limit := uint64(5)
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}

		matches, err := runner.SearchSimilar(c.Request.Context(), id, limit)
		if err != nil {
			if errors.Is(err, sessionstore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}
