package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/ballpit/internal/auth"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/physics"
	"github.com/redis/go-redis/v9"
)

// SandboxManager owns every live sandbox on this instance.
type SandboxManager struct {
	sessions map[string]*Session
	rdb      *redis.Client  // optional, for event fan-out and idle reaping
	config   *config.Config // Application config

	frameSink func(Frame)
	eventSink func(SandboxEvent)
	idleQueue chan idleUpdate // nil without Redis

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// CreateOptions override the configured defaults for one sandbox.
type CreateOptions struct {
	Params       *physics.Config `json:"params,omitempty"`
	InitialBalls *int            `json:"initial_balls,omitempty"`
	Water        *physics.Rect   `json:"water,omitempty"`
	Net          *physics.Rect   `json:"net,omitempty"`
	Seed         int64           `json:"seed,omitempty"`
}

// CreateResult is returned to whoever opened the sandbox.
type CreateResult struct {
	SandboxID       string    `json:"sandbox_id"`
	ControllerToken string    `json:"controller_token"`
	ViewerToken     string    `json:"viewer_token"`
	ExpiresAt       time.Time `json:"expires_at"`
	State           State     `json:"state"`
}

// Summary is the admin listing entry for a sandbox.
type Summary struct {
	SandboxID    string    `json:"sandbox_id"`
	Bodies       int       `json:"bodies"`
	Tick         uint64    `json:"tick"`
	Paused       bool      `json:"paused"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// idleQueueSize bounds the idle deadlines waiting to be written to Redis.
const idleQueueSize = 256

// Hard ceiling on initial_balls when SANDBOX_MAX_BODIES is 0 (unlimited).
const maxInitialBalls = 1000

var (
	// Global sandbox manager instance
	Manager *SandboxManager
)

// InitializeManager initializes the global sandbox manager.
func InitializeManager(rdb *redis.Client, cfg *config.Config) {
	Manager = NewSandboxManager(rdb, cfg)
}

// NewSandboxManager creates a manager. rdb may be nil.
func NewSandboxManager(rdb *redis.Client, cfg *config.Config) *SandboxManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &SandboxManager{
		sessions: make(map[string]*Session),
		rdb:      rdb,
		config:   cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
	if rdb != nil {
		m.idleQueue = make(chan idleUpdate, idleQueueSize)
		go m.runIdleScheduler(m.idleQueue)
	}
	return m
}

// SetSinks wires where frames and sandbox events are delivered. Sessions
// created earlier keep their previous sinks.
func (m *SandboxManager) SetSinks(frames func(Frame), events func(SandboxEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameSink = frames
	m.eventSink = events
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateSandboxID generates a unique sandbox ID
func generateSandboxID() string {
	return "sbx_" + generateToken(8)
}

// DefaultOptions returns options prefilled with the configured parameters,
// so a partial JSON body only overrides the fields it names.
func (m *SandboxManager) DefaultOptions() CreateOptions {
	params := m.config.Simulation()
	return CreateOptions{Params: &params}
}

// Create builds a world from the configured defaults and opts, populates
// it and starts its runner.
func (m *SandboxManager) Create(opts CreateOptions) (*CreateResult, error) {
	session, err := m.build(opts)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(m.config.ControlTokenTTLMinutes) * time.Minute
	controller, expiresAt, err := auth.IssueControlToken(m.config.JWTSecret, session.ID, auth.RoleController, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue controller token: %w", err)
	}
	viewer, _, err := auth.IssueControlToken(m.config.JWTSecret, session.ID, auth.RoleViewer, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue viewer token: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	session.onFrame = m.frameSink
	session.onEvent = m.publishEvent
	session.onTouch = m.touch
	m.mu.Unlock()

	session.mu.Lock()
	session.touch()
	session.mu.Unlock()
	session.Start(m.ctx)

	log.Printf("[SANDBOX] Created %s with %d bodies", session.ID, session.world.Len())

	return &CreateResult{
		SandboxID:       session.ID,
		ControllerToken: controller,
		ViewerToken:     viewer,
		ExpiresAt:       expiresAt,
		State:           session.Snapshot(),
	}, nil
}

func (m *SandboxManager) build(opts CreateOptions) (*Session, error) {
	params := m.config.Simulation()
	if opts.Params != nil {
		params = *opts.Params
	}
	world, err := physics.NewWorld(params)
	if err != nil {
		return nil, err
	}

	water := opts.Water
	if water == nil {
		if r, ok := config.ParseRect(m.config.SandboxWater); ok {
			water = &r
		}
	}
	if water != nil {
		if _, err := world.AddWaterTank(*water); err != nil {
			return nil, err
		}
	}
	net := opts.Net
	if net == nil {
		if r, ok := config.ParseRect(m.config.SandboxNet); ok {
			net = &r
		}
	}
	if net != nil {
		if _, err := world.AddNet(*net); err != nil {
			return nil, err
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = m.config.SandboxSeed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	factory := physics.NewSeededFactory(seed)

	balls := m.config.SandboxInitialBalls
	if opts.InitialBalls != nil {
		balls = *opts.InitialBalls
	}
	limit := m.config.SandboxMaxBodies
	if limit <= 0 {
		limit = maxInitialBalls
	}
	if balls > limit {
		balls = limit
	}
	if balls < 0 {
		balls = 0
	}
	if _, err := factory.Populate(world, balls); err != nil {
		return nil, err
	}

	hz := m.config.SandboxTickHz
	if hz <= 0 {
		hz = 60
	}
	return newSession(generateSandboxID(), world, factory, m.config.SandboxMaxBodies, time.Second/time.Duration(hz)), nil
}

// Get returns a live sandbox by ID.
func (m *SandboxManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSandboxNotFound
	}
	return s, nil
}

// Delete stops a sandbox and forgets it.
func (m *SandboxManager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSandboxNotFound
	}
	s.Stop()
	m.forget(id)
	m.publishEvent(SandboxEvent{Type: EventClosed, SandboxID: id})
	log.Printf("[SANDBOX] Deleted %s", id)
	return nil
}

// List summarizes every live sandbox, oldest first.
func (m *SandboxManager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, Summary{
			SandboxID:    s.ID,
			Bodies:       s.world.Len(),
			Tick:         s.world.Tick(),
			Paused:       s.paused,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.lastActivity,
		})
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the number of live sandboxes.
func (m *SandboxManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every runner.
func (m *SandboxManager) Close() {
	m.cancel()
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
