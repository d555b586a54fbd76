package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/auth"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/sandbox"
)

const adminTokenHeader = "X-Admin-Token"

// AdminTokenMiddleware checks X-Admin-Token against ADMIN_TOKEN_HASH
func AdminTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminTokenHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access not configured"})
			return
		}
		if !auth.VerifyAdminToken(cfg.AdminTokenHash, c.GetHeader(adminTokenHeader)) {
			log.Printf("[API] admin token rejected from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Next()
	}
}

// GetAdminSandboxes lists every live sandbox on this instance
func GetAdminSandboxes() gin.HandlerFunc {
	return func(c *gin.Context) {
		list := sandbox.Manager.List()
		c.JSON(http.StatusOK, gin.H{"sandboxes": list, "count": len(list)})
	}
}

// AdminDeleteSandbox stops and removes a sandbox
func AdminDeleteSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := sandbox.Manager.Delete(id); err != nil {
			respondError(c, err)
			return
		}
		log.Printf("[API] admin deleted sandbox %s", id)
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}
