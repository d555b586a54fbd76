package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func scheduled(mr *miniredis.Miniredis, id string) bool {
	_, err := mr.ZScore(IdleSetKey, id)
	return err == nil
}

func TestTouchSchedulesIdleDeadline(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewSandboxManager(rdb, testConfig())
	defer m.Close()
	s := newPausedSandbox(t, m, CreateOptions{})

	waitFor(t, "idle deadline", func() bool { return scheduled(mr, s.ID) })

	want := float64(s.LastActivity().Add(time.Minute).Unix())
	if got, _ := mr.ZScore(IdleSetKey, s.ID); got != want {
		t.Errorf("deadline = %v, want %v", got, want)
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, "deadline removal", func() bool { return !scheduled(mr, s.ID) })
}

func TestInputDoesNotWaitOnRedis(t *testing.T) {
	// A server that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), MaxRetries: -1})
	defer rdb.Close()
	m := NewSandboxManager(rdb, testConfig())
	defer m.Close()
	s := newPausedSandbox(t, m, CreateOptions{Params: quietParams()})

	start := time.Now()
	for i := 0; i < 3; i++ {
		// Force a fresh deadline write on every input.
		s.mu.Lock()
		s.idleMark = 0
		s.mu.Unlock()
		if _, err := s.SpawnRandom(); err != nil {
			t.Fatalf("SpawnRandom: %v", err)
		}
	}
	if _, err := s.StepOnce(); err != nil {
		t.Fatalf("StepOnce: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("inputs took %v with an unresponsive Redis", elapsed)
	}
}

func TestReapScheduledLeavesOtherInstancesAlone(t *testing.T) {
	mr, _ := newTestRedis(t)
	rdbA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdbA.Close()
	rdbB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdbB.Close()

	a := NewSandboxManager(rdbA, testConfig())
	defer a.Close()
	b := NewSandboxManager(rdbB, testConfig())
	defer b.Close()

	s := newPausedSandbox(t, b, CreateOptions{})
	waitFor(t, "idle deadline", func() bool { return scheduled(mr, s.ID) })

	ctx := context.Background()
	later := time.Now().Add(2 * time.Minute)
	if n := a.reapScheduled(ctx, rdbA, later); n != 0 {
		t.Errorf("instance A reaped %d sandboxes it does not own", n)
	}
	if !scheduled(mr, s.ID) {
		t.Fatalf("instance A removed the deadline of B's sandbox")
	}

	if n := b.reapScheduled(ctx, rdbB, later); n != 1 {
		t.Fatalf("instance B reaped %d sandboxes, want 1", n)
	}
	if _, err := b.Get(s.ID); !errors.Is(err, ErrSandboxNotFound) {
		t.Errorf("idle sandbox still live on B")
	}
	waitFor(t, "deadline removal", func() bool { return !scheduled(mr, s.ID) })
}

func TestReapScheduledReschedulesActiveSandbox(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewSandboxManager(rdb, testConfig())
	defer m.Close()
	s := newPausedSandbox(t, m, CreateOptions{})
	waitFor(t, "idle deadline", func() bool { return scheduled(mr, s.ID) })

	// A stale deadline while the sandbox was used a moment ago.
	mr.ZAdd(IdleSetKey, 1, s.ID)

	now := time.Now()
	if n := m.reapScheduled(context.Background(), rdb, now); n != 0 {
		t.Fatalf("reaped %d active sandboxes", n)
	}
	if _, err := m.Get(s.ID); err != nil {
		t.Fatalf("active sandbox reaped: %v", err)
	}
	waitFor(t, "rescheduled deadline", func() bool {
		score, err := mr.ZScore(IdleSetKey, s.ID)
		return err == nil && score > float64(now.Unix())
	})
}

func TestEventsArePublishedToRedis(t *testing.T) {
	_, rdb := newTestRedis(t)
	rec := &eventRecorder{}
	m := NewSandboxManager(rdb, testConfig())
	m.SetSinks(nil, rec.record)
	defer m.Close()
	s := newPausedSandbox(t, m, CreateOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pubsub := rdb.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := s.SetGravity(0.25); err != nil {
		t.Fatalf("SetGravity: %v", err)
	}
	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var ev SandboxEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Type != EventParamsUpdated || ev.SandboxID != s.ID {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Params == nil || ev.Params.Gravity != 0.25 {
		t.Errorf("published params = %+v, want gravity 0.25", ev.Params)
	}
	if len(rec.ofType(EventParamsUpdated)) != 0 {
		t.Errorf("published event must not also go to the local sink")
	}
}

func TestEventsFallBackToLocalSinkWhenPublishFails(t *testing.T) {
	mr, rdb := newTestRedis(t)
	rec := &eventRecorder{}
	m := NewSandboxManager(rdb, testConfig())
	m.SetSinks(nil, rec.record)
	defer m.Close()
	s := newPausedSandbox(t, m, CreateOptions{})

	mr.SetError("server down")
	if err := s.SetFriction(0.3); err != nil {
		t.Fatalf("SetFriction: %v", err)
	}
	if len(rec.ofType(EventParamsUpdated)) != 1 {
		t.Errorf("expected the event on the local sink")
	}
}
