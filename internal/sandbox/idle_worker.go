package sandbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/playmatatu/ballpit/internal/config"
	"github.com/redis/go-redis/v9"
)

// IdleSetKey is the Redis sorted set of sandbox IDs scored by the unix
// time at which they become idle.
const IdleSetKey = "sandbox_idle"

func (m *SandboxManager) idleTimeout() time.Duration {
	return time.Duration(m.config.SandboxIdleMinutes) * time.Minute
}

// idleUpdate is a pending write to the idle set. A zero deadline removes
// the sandbox.
type idleUpdate struct {
	id       string
	deadline int64
}

// touch queues the session's idle deadline. Called with s.mu held; it
// must not block. A full queue is retried on the next input.
func (m *SandboxManager) touch(s *Session) {
	if m.idleQueue == nil {
		return
	}
	deadline := s.lastActivity.Add(m.idleTimeout()).Unix()
	if deadline == s.idleMark {
		return
	}

	select {
	case m.idleQueue <- idleUpdate{id: s.ID, deadline: deadline}:
		s.idleMark = deadline
	default:
		log.Printf("[IDLE] Schedule queue full; deadline for %s deferred", s.ID)
	}
}

// forget drops a deleted sandbox from the idle set. It goes through the
// same queue so it lands after any deadline still pending for id.
func (m *SandboxManager) forget(id string) {
	if m.idleQueue == nil {
		return
	}
	select {
	case m.idleQueue <- idleUpdate{id: id}:
	case <-m.ctx.Done():
	}
}

// runIdleScheduler applies queued idle updates in order until the manager
// is closed.
func (m *SandboxManager) runIdleScheduler(queue <-chan idleUpdate) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case u := <-queue:
			m.applyIdleUpdate(u)
		}
	}
}

func (m *SandboxManager) applyIdleUpdate(u idleUpdate) {
	ctx, cancel := context.WithTimeout(m.ctx, 2*time.Second)
	defer cancel()

	var err error
	if u.deadline == 0 {
		err = m.rdb.ZRem(ctx, IdleSetKey, u.id).Err()
	} else {
		err = m.rdb.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(u.deadline), Member: u.id}).Err()
	}
	if err != nil {
		log.Printf("[IDLE] Failed to schedule %s: %v", u.id, err)
	}
}

// StartIdleWorker starts a background worker that deletes sandboxes nobody
// has touched for SANDBOX_IDLE_MINUTES. Deadlines live in a Redis sorted
// set when rdb is set; otherwise the local sessions are scanned.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, cfg *config.Config) {
	if Manager == nil || cfg == nil {
		log.Println("[IDLE] Manager or config missing; idle worker not started")
		return
	}
	if cfg.SandboxIdleMinutes <= 0 {
		log.Println("[IDLE] SANDBOX_IDLE_MINUTES is 0; idle worker disabled")
		return
	}

	poll := time.Duration(cfg.IdleWorkerPollInterval) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				if rdb != nil {
					Manager.reapScheduled(ctx, rdb, time.Now())
				} else {
					Manager.reapLocal(time.Now())
				}
			}
		}
	}()
}

// reapScheduled deletes sandboxes whose deadline in the sorted set has passed.
func (m *SandboxManager) reapScheduled(ctx context.Context, rdb *redis.Client, now time.Time) int {
	members, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle sandboxes: %v", err)
		return 0
	}

	reaped := 0
	for _, id := range members {
		// Sessions live on one instance; leave other instances' deadlines
		// to their own workers.
		s, err := m.Get(id)
		if err != nil {
			continue
		}
		// Attempt to remove (race-safe against a concurrent touch)
		if removed, _ := rdb.ZRem(ctx, IdleSetKey, id).Result(); removed == 0 {
			continue
		}
		if now.Sub(s.LastActivity()) < m.idleTimeout() {
			s.mu.Lock()
			s.idleMark = 0
			m.touch(s)
			s.mu.Unlock()
			continue
		}
		if m.Delete(id) == nil {
			log.Printf("[IDLE] Reaped idle sandbox %s", id)
			reaped++
		}
	}
	return reaped
}

// reapLocal deletes idle sandboxes without Redis.
func (m *SandboxManager) reapLocal(now time.Time) int {
	reaped := 0
	for _, sum := range m.List() {
		if now.Sub(sum.LastActivity) < m.idleTimeout() {
			continue
		}
		if m.Delete(sum.SandboxID) == nil {
			log.Printf("[IDLE] Reaped idle sandbox %s", sum.SandboxID)
			reaped++
		}
	}
	return reaped
}
