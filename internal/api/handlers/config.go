package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/config"
)

// GetConfig returns the defaults a frontend needs before creating a sandbox
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"params":        cfg.Simulation(),
			"max_bodies":    cfg.SandboxMaxBodies,
			"initial_balls": cfg.SandboxInitialBalls,
			"tick_hz":       cfg.SandboxTickHz,
			"idle_minutes":  cfg.SandboxIdleMinutes,
		})
	}
}
