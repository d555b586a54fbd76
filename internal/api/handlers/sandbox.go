package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/physics"
	"github.com/playmatatu/ballpit/internal/sandbox"
)

// CreateSandbox opens a new sandbox. The body is optional.
func CreateSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := sandbox.Manager.DefaultOptions()
		if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		res, err := sandbox.Manager.Create(opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// GetSandboxState returns bodies, zones and parameters
func GetSandboxState() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// ListBodies returns the live bodies in simulation order
func ListBodies() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		bodies := s.Bodies()
		c.JSON(http.StatusOK, gin.H{"bodies": bodies, "count": len(bodies)})
	}
}

// SpawnBody adds a body; without a request body a random one is spawned
func SpawnBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}

		var spec physics.BodySpec
		err := c.ShouldBindJSON(&spec)
		var id physics.BodyID
		switch {
		case errors.Is(err, io.EOF):
			id, err = s.SpawnRandom()
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		default:
			id, err = s.Spawn(spec)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"body_id": id})
	}
}

// RemoveBody drops a body from the sandbox
func RemoveBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		id, ok := parseBodyID(c)
		if !ok {
			return
		}
		if err := s.Remove(id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// LaunchBody sets a body's velocity from an angle in radians and a speed
func LaunchBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		id, ok := parseBodyID(c)
		if !ok {
			return
		}

		var req struct {
			Angle *float64 `json:"angle" binding:"required"`
			Speed *float64 `json:"speed" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "angle and speed required"})
			return
		}
		if err := s.Launch(id, *req.Angle, *req.Speed); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"body_id": id})
	}
}

// UpdateParams changes gravity, friction and restitution. All supplied
// values are checked before any is applied.
func UpdateParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}

		var req struct {
			Gravity     *float64 `json:"gravity"`
			Friction    *float64 `json:"friction"`
			Restitution *float64 `json:"restitution"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		next := s.Snapshot().Params
		if req.Gravity != nil {
			next.Gravity = *req.Gravity
		}
		if req.Friction != nil {
			next.Friction = *req.Friction
		}
		if req.Restitution != nil {
			next.Restitution = *req.Restitution
		}
		if err := next.Validate(); err != nil {
			respondError(c, err)
			return
		}

		if req.Gravity != nil {
			if err := s.SetGravity(*req.Gravity); err != nil {
				respondError(c, err)
				return
			}
		}
		if req.Friction != nil {
			if err := s.SetFriction(*req.Friction); err != nil {
				respondError(c, err)
				return
			}
		}
		if req.Restitution != nil {
			if err := s.SetRestitution(*req.Restitution); err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"params": s.Snapshot().Params})
	}
}

// StepSandbox advances a paused sandbox by one tick
func StepSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		frame, err := s.StepOnce()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, frame)
	}
}

// PauseSandbox stops the runner from ticking
func PauseSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		s.Pause()
		c.JSON(http.StatusOK, gin.H{"paused": true})
	}
}

// ResumeSandbox lets the runner tick again
func ResumeSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := loadSession(c)
		if s == nil {
			return
		}
		s.Resume()
		c.JSON(http.StatusOK, gin.H{"paused": false})
	}
}

// DeleteSandbox lets the controller close its own sandbox
func DeleteSandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sandbox.Manager.Delete(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
