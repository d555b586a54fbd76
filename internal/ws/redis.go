package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/sandbox"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client
var wsConfig *config.Config

func SetRedisClient(r *redis.Client, cfg *config.Config) {
	rdbClient = r
	wsConfig = cfg
}

func wsSecret() string {
	if wsConfig == nil {
		return ""
	}
	return wsConfig.JWTSecret
}

// AttachManager routes the manager's frames and events into the hub.
func AttachManager(m *sandbox.SandboxManager) {
	m.SetSinks(BroadcastFrame, RelayEvent)
}

// BroadcastFrame pushes a tick's frame to everyone watching the sandbox.
func BroadcastFrame(f sandbox.Frame) {
	SandboxHub.BroadcastToSandbox(f.SandboxID, gin.H{"type": "frame", "data": f})
}

// RelayEvent turns a sandbox event into an outbound message for its room.
func RelayEvent(ev sandbox.SandboxEvent) {
	switch ev.Type {
	case sandbox.EventCaptured:
		SandboxHub.BroadcastToSandbox(ev.SandboxID, gin.H{
			"type":    "captured",
			"body_id": ev.BodyID,
			"zone":    ev.Zone,
			"score":   ev.Score,
			"tick":    ev.Tick,
		})
	case sandbox.EventParamsUpdated:
		SandboxHub.BroadcastToSandbox(ev.SandboxID, gin.H{
			"type":   "params_updated",
			"params": ev.Params,
		})
	case sandbox.EventClosed:
		SandboxHub.BroadcastToSandbox(ev.SandboxID, gin.H{"type": "sandbox_closed"})
		SandboxHub.CloseSandbox(ev.SandboxID)
	default:
		log.Printf("[WS] ignoring unknown sandbox event %q", ev.Type)
	}
}

// StartEventSubscriber subscribes to the sandbox_events channel and relays
// incoming events to sandbox rooms on this instance.
func StartEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; sandbox events are delivered locally")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, sandbox.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", sandbox.EventsChannel)
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WS] %s subscriber stopping", sandbox.EventsChannel)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev sandbox.SandboxEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[WS] invalid event payload: %v", err)
					continue
				}
				log.Printf("[WS] event received: type=%s sandbox=%s room_size=%d", ev.Type, ev.SandboxID, SandboxHub.RoomSize(ev.SandboxID))
				RelayEvent(ev)
			}
		}
	}()
}
