package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/physics"
	"github.com/playmatatu/ballpit/internal/sandbox"
)

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var verr *physics.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, sandbox.ErrSandboxNotFound), errors.Is(err, physics.ErrBodyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sandbox.ErrSandboxFull),
		errors.Is(err, sandbox.ErrNotPaused),
		errors.Is(err, physics.ErrInvalidTransition),
		errors.Is(err, physics.ErrStepInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// loadSession resolves the :id path param. It writes the error response
// and returns nil when the sandbox does not exist.
func loadSession(c *gin.Context) *sandbox.Session {
	s, err := sandbox.Manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil
	}
	return s
}

func parseBodyID(c *gin.Context) (physics.BodyID, bool) {
	id, err := strconv.Atoi(c.Param("bid"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body id"})
		return 0, false
	}
	return physics.BodyID(id), true
}
