package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-deep-research/internal/auth"
	"go-deep-research/internal/config"
)

// sessionDuration matches the teacher's chat-session JWT lifetime.
const sessionDuration = 24 * time.Hour

// adminUserID is the fixed identity behind RESEARCH_ADMIN_USER. There is
// exactly one operator account per SPEC_FULL.md's single-operator
// deployment model, so there is no user table to look an ID up in.
const adminUserID = uint(1)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login authenticates against the single configured admin
// credential and issues a JWT backed by a Redis session record, the way
// the teacher's LoginHandler does against its user table.
func LoginHandler(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if req.Username != cfg.Server.AdminUser {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err := auth.CheckPassword(cfg.Server.AdminPasswordHash, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := auth.GenerateJWT(cfg.Server.JWTSecret, adminUserID, req.Username, string(auth.RoleAdmin), sessionDuration)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		if err := auth.SetSession(rdb, adminUserID, token, sessionDuration); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(sessionDuration.Seconds())})
	}
}

// POST /auth/logout invalidates the caller's Redis session.
func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("userId")
		uid, _ := userID.(uint)
		if err := auth.DeleteSession(rdb, uid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
	}
}

// GET /auth/me reports the authenticated caller's identity, mirroring the
// claims AuthMiddleware already validated and attached to the context.
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, _ := c.Get("username")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"username": username, "role": role})
	}
}
