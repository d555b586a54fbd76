package sandbox

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/ballpit/internal/physics"
)

var (
	ErrSandboxNotFound = errors.New("sandbox not found")
	ErrSandboxFull     = errors.New("sandbox body limit reached")
	ErrNotPaused       = errors.New("sandbox is not paused")
)

// Frame is what renderers receive after every tick.
type Frame struct {
	SandboxID string                 `json:"sandbox_id"`
	Tick      uint64                 `json:"tick"`
	Paused    bool                   `json:"paused"`
	Bodies    []physics.BodySnapshot `json:"bodies"`
	Zones     []physics.ZoneSnapshot `json:"zones"`
	Events    []physics.Event        `json:"events,omitempty"`
}

// State is a full snapshot including the current parameters.
type State struct {
	Frame
	Params    physics.Config `json:"params"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is one live sandbox: a world, the pointer state of its
// controller and the runner that ticks it.
type Session struct {
	ID        string
	CreatedAt time.Time

	world        *physics.World
	factory      *physics.Factory
	maxBodies    int
	tickInterval time.Duration
	paused       bool

	dragging physics.BodyID
	hasDrag  bool
	pointer  physics.Vec2

	lastActivity time.Time
	idleMark     int64
	onFrame      func(Frame)
	onEvent      func(SandboxEvent)
	onTouch      func(*Session)

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func newSession(id string, world *physics.World, factory *physics.Factory, maxBodies int, tickInterval time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		world:        world,
		factory:      factory,
		maxBodies:    maxBodies,
		tickInterval: tickInterval,
		lastActivity: now,
	}
}

// Start launches the runner goroutine. It ticks until ctx is cancelled or
// Stop is called.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// Stop halts the runner and waits for it to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	log.Printf("[SANDBOX] Runner started for %s (every %v)", s.ID, s.tickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SANDBOX] Runner stopped for %s", s.ID)
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	frame := s.stepLocked()
	s.mu.Unlock()

	s.emit(frame)
}

func (s *Session) stepLocked() Frame {
	events := s.world.Step()
	return s.frameLocked(events)
}

func (s *Session) frameLocked(events []physics.Event) Frame {
	return Frame{
		SandboxID: s.ID,
		Tick:      s.world.Tick(),
		Paused:    s.paused,
		Bodies:    s.world.ListBodies(),
		Zones:     s.world.Zones(),
		Events:    events,
	}
}

// emit hands a finished frame to the renderer sink and reports captures.
func (s *Session) emit(frame Frame) {
	if s.onFrame != nil {
		s.onFrame(frame)
	}
	if s.onEvent == nil {
		return
	}
	for _, e := range frame.Events {
		if e.Type != physics.EventCapture {
			continue
		}
		score := 0
		if e.TargetID >= 0 && e.TargetID < len(frame.Zones) {
			score = frame.Zones[e.TargetID].Score
		}
		s.onEvent(SandboxEvent{
			Type:      EventCaptured,
			SandboxID: s.ID,
			BodyID:    e.BodyID,
			Zone:      e.TargetID,
			Score:     score,
			Tick:      e.Tick,
		})
	}
}

// touch records controller activity. Callers hold s.mu.
func (s *Session) touch() {
	s.lastActivity = time.Now()
	if s.onTouch != nil {
		s.onTouch(s)
	}
}

// LastActivity returns the time of the latest controller input.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Spawn adds a body described by spec.
func (s *Session) Spawn(spec physics.BodySpec) (physics.BodyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBodies > 0 && s.world.Len() >= s.maxBodies {
		return 0, ErrSandboxFull
	}
	s.touch()
	return s.world.Spawn(spec)
}

// SpawnRandom adds a body from the session's factory.
func (s *Session) SpawnRandom() (physics.BodyID, error) {
	s.mu.Lock()
	cfg := s.world.Config()
	spec := s.factory.Random(cfg.Width, cfg.Height)
	s.mu.Unlock()
	return s.Spawn(spec)
}

// Remove drops a body from the sandbox.
func (s *Session) Remove(id physics.BodyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	if s.hasDrag && s.dragging == id {
		s.hasDrag = false
	}
	return s.world.RemoveBody(id)
}

// Launch sets a body's velocity from an angle (radians) and speed.
func (s *Session) Launch(id physics.BodyID, angle, speed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	return s.world.LaunchBody(id, angle, speed)
}

// PointerDown picks the nearest body under the pointer and starts dragging
// it. It reports false when nothing is under the pointer.
func (s *Session) PointerDown(x, y float64) (physics.BodyID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	p := physics.NewVec2(x, y)
	id, ok := s.world.PickBody(p)
	if !ok {
		return 0, false, nil
	}
	if s.hasDrag && s.dragging != id {
		_ = s.world.EndDrag(s.dragging)
	}
	if err := s.world.BeginDrag(id); err != nil {
		return 0, false, err
	}
	s.dragging, s.hasDrag, s.pointer = id, true, p
	return id, true, nil
}

// PointerMove drags the held body by the pointer's movement since the last
// pointer event. Without a held body it does nothing.
func (s *Session) PointerMove(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasDrag {
		return nil
	}
	s.touch()
	p := physics.NewVec2(x, y)
	delta := p.Minus(s.pointer)
	if err := s.world.DragTo(s.dragging, delta.X, delta.Y); err != nil {
		s.hasDrag = false
		return err
	}
	s.pointer = p
	return nil
}

// PointerUp releases the held body.
func (s *Session) PointerUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasDrag {
		return nil
	}
	s.touch()
	s.hasDrag = false
	err := s.world.EndDrag(s.dragging)
	if errors.Is(err, physics.ErrBodyNotFound) {
		return nil
	}
	return err
}

func (s *Session) SetGravity(v float64) error {
	return s.setParam(func(w *physics.World) error { return w.SetGravity(v) })
}

func (s *Session) SetFriction(v float64) error {
	return s.setParam(func(w *physics.World) error { return w.SetFriction(v) })
}

func (s *Session) SetRestitution(v float64) error {
	return s.setParam(func(w *physics.World) error { return w.SetGlobalRestitution(v) })
}

func (s *Session) setParam(apply func(*physics.World) error) error {
	s.mu.Lock()
	s.touch()
	if err := apply(s.world); err != nil {
		s.mu.Unlock()
		return err
	}
	params := s.world.Config()
	s.mu.Unlock()

	if s.onEvent != nil {
		s.onEvent(SandboxEvent{Type: EventParamsUpdated, SandboxID: s.ID, Params: &params})
	}
	return nil
}

// Pause stops ticking without stopping the runner.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.paused = true
}

func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.paused = false
}

// StepOnce advances a paused sandbox by a single tick.
func (s *Session) StepOnce() (Frame, error) {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return Frame{}, ErrNotPaused
	}
	s.touch()
	frame := s.stepLocked()
	s.mu.Unlock()

	s.emit(frame)
	return frame, nil
}

// Snapshot returns the current bodies, zones and parameters.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Frame:     s.frameLocked(nil),
		Params:    s.world.Config(),
		CreatedAt: s.CreatedAt,
	}
}

// Bodies returns the live bodies for rendering.
func (s *Session) Bodies() []physics.BodySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.ListBodies()
}
