package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/auth"
	"github.com/playmatatu/ballpit/internal/config"
)

// ControllerMiddleware requires a bearer controller token issued for the
// sandbox in the :id path param.
func ControllerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		err := auth.AuthorizeController(cfg.JWTSecret, c.Param("id"), token)
		switch {
		case err == nil:
			c.Set("sandbox_id", c.Param("id"))
			c.Next()
		case errors.Is(err, auth.ErrWrongSandbox), errors.Is(err, auth.ErrNotController):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			log.Printf("[API] rejected controller token for %s: %v", c.Param("id"), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		}
	}
}
