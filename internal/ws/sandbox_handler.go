package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/ballpit/internal/auth"
	"github.com/playmatatu/ballpit/internal/physics"
	"github.com/playmatatu/ballpit/internal/sandbox"
)

// Inbound message data types
type BodyRefData struct {
	BodyID physics.BodyID `json:"body_id"`
}

type LaunchData struct {
	BodyID physics.BodyID `json:"body_id"`
	Angle  float64        `json:"angle"`
	Speed  float64        `json:"speed"`
}

type PointerData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ParamData struct {
	Value float64 `json:"value"`
}

// SandboxHub is the single hub for all sandboxes.
var SandboxHub *Hub

func init() {
	SandboxHub = NewHub()
	go SandboxHub.run()
}

func newClientID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "c_" + hex.EncodeToString(b)
}

// HandleWebSocket upgrades a viewer or controller connection for the
// sandbox in the :id path param. A valid controller token in ct grants
// input; without it the client only receives frames.
func HandleWebSocket(c *gin.Context) {
	sandboxID := c.Param("id")
	controllerToken := c.Query("ct")

	s, err := sandbox.Manager.Get(sandboxID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sandbox not found"})
		return
	}

	controller := false
	if controllerToken != "" {
		if err := auth.AuthorizeController(wsSecret(), s.ID, controllerToken); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid controller token"})
			return
		}
		controller = true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:       conn,
		clientID:   newClientID(),
		sandboxID:  s.ID,
		controller: controller,
		send:       make(chan []byte, 64),
		joined:     make(chan struct{}),
	}

	// Queue the initial state before the client becomes visible to broadcasts.
	if data, err := json.Marshal(stateMessage(s.Snapshot())); err == nil {
		client.send <- data
	}

	joinSandbox(client)

	go client.writePump()
	go client.readPump()
}

// joinSandbox registers the client and reports whether its sandbox is still
// live. A sandbox deleted while the client was joining has already closed
// its room, so the room is closed again to release the client.
func joinSandbox(client *Client) bool {
	SandboxHub.register <- client
	<-client.joined

	if _, err := sandbox.Manager.Get(client.sandboxID); err != nil {
		log.Printf("[WS] Sandbox %s closed while client %s was joining", client.sandboxID, client.clientID)
		SandboxHub.BroadcastToSandbox(client.sandboxID, gin.H{"type": "sandbox_closed"})
		SandboxHub.CloseSandbox(client.sandboxID)
		return false
	}
	return true
}

// readPump reads sandbox input messages.
func (c *Client) readPump() {
	defer func() {
		SandboxHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for client %s: %v", c.clientID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message to the sandbox session.
func (c *Client) handleMessage(msg WSMessage) {
	s, err := sandbox.Manager.Get(c.sandboxID)
	if err != nil {
		c.sendError("Sandbox not found")
		return
	}

	if msg.Type == "get_state" {
		c.sendState(s)
		return
	}
	if !c.controller {
		c.sendError("Controller token required")
		return
	}

	switch msg.Type {
	case "spawn":
		var data physics.BodySpec
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid spawn data")
			return
		}
		id, err := s.Spawn(data)
		c.reply(s, err, gin.H{"type": "spawned", "body_id": id})

	case "spawn_random":
		id, err := s.SpawnRandom()
		c.reply(s, err, gin.H{"type": "spawned", "body_id": id})

	case "remove":
		var data BodyRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid remove data")
			return
		}
		c.reply(s, s.Remove(data.BodyID), nil)

	case "launch":
		var data LaunchData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid launch data")
			return
		}
		c.reply(s, s.Launch(data.BodyID, data.Angle, data.Speed), nil)

	case "pointer_down":
		var data PointerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid pointer data")
			return
		}
		id, ok, err := s.PointerDown(data.X, data.Y)
		if ok {
			c.reply(s, err, gin.H{"type": "picked", "body_id": id})
		} else {
			c.reply(s, err, nil)
		}

	case "pointer_move":
		var data PointerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid pointer data")
			return
		}
		c.reply(s, s.PointerMove(data.X, data.Y), nil)

	case "pointer_up":
		c.reply(s, s.PointerUp(), nil)

	case "set_gravity", "set_friction", "set_restitution":
		var data ParamData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid parameter data")
			return
		}
		c.reply(s, setParam(s, msg.Type, data.Value), nil)

	case "pause":
		s.Pause()
		SandboxHub.BroadcastToSandbox(c.sandboxID, gin.H{"type": "paused"})

	case "resume":
		s.Resume()
		SandboxHub.BroadcastToSandbox(c.sandboxID, gin.H{"type": "resumed"})

	case "step":
		// The frame reaches the room through the frame sink.
		if _, err := s.StepOnce(); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("Unknown message type")
	}
}

func setParam(s *sandbox.Session, typ string, v float64) error {
	switch typ {
	case "set_gravity":
		return s.SetGravity(v)
	case "set_friction":
		return s.SetFriction(v)
	default:
		return s.SetRestitution(v)
	}
}

// reply sends ack (if any) on success or the error otherwise. A paused
// sandbox produces no frames, so its room gets the new state instead.
func (c *Client) reply(s *sandbox.Session, err error, ack gin.H) {
	if err != nil {
		var verr *physics.ValidationError
		if errors.As(err, &verr) {
			c.sendJSON(gin.H{"type": "error", "message": verr.Error(), "field": verr.Field})
			return
		}
		c.sendError(err.Error())
		return
	}
	if ack != nil {
		c.sendJSON(ack)
	}
	if st := s.Snapshot(); st.Paused {
		SandboxHub.BroadcastToSandbox(c.sandboxID, stateMessage(st))
	}
}

func (c *Client) sendState(s *sandbox.Session) {
	c.sendJSON(stateMessage(s.Snapshot()))
}

func stateMessage(st sandbox.State) gin.H {
	return gin.H{"type": "state", "data": st}
}
