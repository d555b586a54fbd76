package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/ws"
)

// HandleSandboxWebSocket streams frames for a sandbox and accepts
// controller input
func HandleSandboxWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
