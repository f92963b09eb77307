package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go-deep-research/internal/auth"
	"go-deep-research/internal/config"
)

// SetupRouter wires every HTTP and websocket route cmd/research-server
// exposes, grouped and gated the way the teacher's SetupRouter gates
// /chats and /users behind AuthMiddleware.
func SetupRouter(cfg *config.Config, rdb *redis.Client, runner *Runner) *gin.Engine {
	r := gin.Default()

	r.GET("/health", healthHandler)
	r.GET("/config", configHandler(cfg))

	r.POST("/auth/login", LoginHandler(cfg, rdb))
	r.POST("/auth/logout", auth.AuthMiddleware(cfg, rdb, false), LogoutHandler(rdb))
	r.GET("/auth/me", auth.AuthMiddleware(cfg, rdb, false), MeHandler())

	research := r.Group("/research", auth.AuthMiddleware(cfg, rdb, false))
	{
		research.POST("", CreateResearchHandler(runner))
		research.GET("", ListResearchHandler(runner))
		research.GET("/:id", GetResearchHandler(runner))
		research.POST("/:id/respond", RespondResearchHandler(runner))
		research.GET("/:id/similar", SimilarResearchHandler(runner))
		research.GET("/:id/ws", WSResearchHandler(cfg, runner))
	}

	return r
}
