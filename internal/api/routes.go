package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/api/handlers"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg))

		v1.POST("/sandbox", handlers.CreateSandbox())

		sb := v1.Group("/sandbox/:id")
		{
			// Read-only
			sb.GET("", handlers.GetSandboxState())
			sb.GET("/bodies", handlers.ListBodies())
			sb.GET("/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSandboxWebSocket())

			// Controller only
			ctl := sb.Group("", handlers.ControllerMiddleware(cfg))
			ctl.DELETE("", handlers.DeleteSandbox())
			ctl.POST("/bodies", handlers.SpawnBody())
			ctl.DELETE("/bodies/:bid", handlers.RemoveBody())
			ctl.POST("/bodies/:bid/launch", handlers.LaunchBody())
			ctl.PUT("/params", handlers.UpdateParams())
			ctl.POST("/pause", handlers.PauseSandbox())
			ctl.POST("/resume", handlers.ResumeSandbox())
			ctl.POST("/step", handlers.StepSandbox())
		}

		admin := v1.Group("/admin", handlers.AdminTokenMiddleware(cfg))
		{
			admin.GET("/sandboxes", handlers.GetAdminSandboxes())
			admin.DELETE("/sandboxes/:id", handlers.AdminDeleteSandbox())
		}
	}
}
