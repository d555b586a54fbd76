package sandbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/playmatatu/ballpit/internal/physics"
)

// EventsChannel is the Redis channel sandbox events are published on.
const EventsChannel = "sandbox_events"

const (
	EventCaptured      = "captured"
	EventParamsUpdated = "params_updated"
	EventClosed        = "sandbox_closed"
)

// SandboxEvent is a low-rate notification relayed to every viewer of a
// sandbox, across instances when Redis is configured.
type SandboxEvent struct {
	Type      string          `json:"type"`
	SandboxID string          `json:"sandbox_id"`
	BodyID    physics.BodyID  `json:"body_id,omitempty"`
	Zone      int             `json:"zone"`
	Score     int             `json:"score,omitempty"`
	Tick      uint64          `json:"tick,omitempty"`
	Params    *physics.Config `json:"params,omitempty"`
}

// publishEvent fans an event out through Redis, or straight to the local
// sink when Redis is not configured or the publish fails.
func (m *SandboxManager) publishEvent(ev SandboxEvent) {
	if m.rdb != nil {
		b, err := json.Marshal(ev)
		if err == nil {
			ctx, cancel := context.WithTimeout(m.ctx, 2*time.Second)
			n, err := m.rdb.Publish(ctx, EventsChannel, b).Result()
			cancel()
			if err == nil {
				log.Printf("[EVENTS] published %s for %s subscribers=%d", ev.Type, ev.SandboxID, n)
				return
			}
			log.Printf("[EVENTS] publish %s for %s failed: %v", ev.Type, ev.SandboxID, err)
		}
	}

	m.mu.RLock()
	sink := m.eventSink
	m.mu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}
