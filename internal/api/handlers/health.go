package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/sandbox"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(c *gin.Context) {
	live := 0
	if sandbox.Manager != nil {
		live = sandbox.Manager.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "ballpit-api",
		"version":   version,
		"uptime":    time.Since(startTime).String(),
		"sandboxes": live,
	})
}
