package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-deep-research/internal/config"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /config returns the non-sensitive subset of the running config, the
// way the teacher's configHandler does for its LLM/SearxNG settings.
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host": cfg.Server.Host,
				"port": cfg.Server.Port,
			},
			"llm": gin.H{
				"provider": cfg.LLM.Provider,
				"model":    cfg.LLM.Model,
			},
			"searxng": gin.H{
				"url": cfg.SearxNG.URL,
			},
			"agent": cfg.Agent,
		})
	}
}
