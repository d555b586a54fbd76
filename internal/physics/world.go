package physics

import (
	"math"
)

// World is one independent simulation: its live bodies in insertion order,
// its zones and its parameters. A World is not safe for concurrent use;
// callers serialize Step and every mutation.
type World struct {
	cfg      Config
	resolver CollisionResolver
	bodies   []*Body
	zones    []Zone
	nextID   BodyID
	tick     uint64
	stepping bool
}

// NewWorld validates cfg and returns an empty world.
func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	resolver, err := NewResolver(cfg.Resolver)
	if err != nil {
		return nil, err
	}
	return &World{
		cfg:      cfg,
		resolver: resolver,
		bodies:   make([]*Body, 0),
		nextID:   1,
	}, nil
}

// Config returns a copy of the current parameters.
func (w *World) Config() Config { return w.cfg }

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 { return w.tick }

// Len returns the number of live bodies.
func (w *World) Len() int { return len(w.bodies) }

// SpawnBody adds a body at rest.
func (w *World) SpawnBody(x, y, radius, mass float64, color string) (BodyID, error) {
	return w.Spawn(BodySpec{X: x, Y: y, Radius: radius, Mass: mass, Color: color})
}

// Spawn appends a body built from spec. New bodies take the current global
// restitution.
func (w *World) Spawn(spec BodySpec) (BodyID, error) {
	if w.stepping {
		return 0, ErrStepInProgress
	}
	if !finite(spec.Radius) || spec.Radius <= 0 {
		return 0, invalid("radius", spec.Radius, "must be positive")
	}
	if !finite(spec.Mass) || spec.Mass <= 0 {
		return 0, invalid("mass", spec.Mass, "must be positive")
	}
	pos := NewVec2(spec.X, spec.Y)
	vel := NewVec2(spec.DX, spec.DY)
	if !pos.IsFinite() || !vel.IsFinite() {
		return 0, invalid("position", math.NaN(), "position and velocity must be finite")
	}

	b := &Body{
		ID:          w.nextID,
		Position:    pos,
		Velocity:    vel,
		Radius:      spec.Radius,
		Mass:        spec.Mass,
		Restitution: w.cfg.Restitution,
		Color:       spec.Color,
		State:       StateFree,
	}
	w.nextID++
	w.bodies = append(w.bodies, b)
	return b.ID, nil
}

// RemoveBody drops a body from the live set.
func (w *World) RemoveBody(id BodyID) error {
	if w.stepping {
		return ErrStepInProgress
	}
	for i, b := range w.bodies {
		if b.ID == id {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return nil
		}
	}
	return ErrBodyNotFound
}

// Body returns the live body with id.
func (w *World) Body(id BodyID) (*Body, error) {
	for _, b := range w.bodies {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrBodyNotFound
}

// AddWaterTank adds a buoyant zone and returns its index.
func (w *World) AddWaterTank(r Rect) (int, error) {
	return w.addZone(NewWaterTank(r))
}

// AddNet adds a capture zone and returns its index.
func (w *World) AddNet(r Rect) (int, error) {
	return w.addZone(NewBasketballNet(r))
}

func (w *World) addZone(z Zone) (int, error) {
	if !z.Bounds().Valid() {
		return 0, invalid("zone", z.Bounds().W*z.Bounds().H, "zone must have a positive area")
	}
	w.zones = append(w.zones, z)
	return len(w.zones) - 1, nil
}

// Step advances the world by one tick. Each live body in insertion order is
// integrated, bounced off the boundaries, run through the zones and then
// resolved against every other live body. Later bodies see the already
// updated state of earlier ones. Captured bodies drop out of the rest of
// the tick and are removed from the live set when the tick ends.
func (w *World) Step() []Event {
	w.stepping = true
	defer func() { w.stepping = false }()

	cfg := &w.cfg
	var events []Event

	for _, z := range w.zones {
		if n, ok := z.(*BasketballNet); ok {
			n.Occupied = false
		}
	}

	captured := false
	for i, b := range w.bodies {
		if b.Captured() {
			continue
		}

		if !b.Draggable() {
			integrate(b, cfg)
			events = resolveBoundary(b, cfg, w.tick, events)
			events = w.applyZones(b, cfg, events)
			if b.Captured() {
				captured = true
				continue
			}
		}

		for j, other := range w.bodies {
			if j == i || other.Captured() {
				continue
			}
			if cfg.PairPass == PairPassOnce && j < i {
				continue
			}
			if !b.Overlaps(other) {
				continue
			}
			if w.resolver.Resolve(b, other) {
				events = append(events, Event{
					Type:     EventBall,
					Tick:     w.tick,
					BodyID:   b.ID,
					TargetID: int(other.ID),
					Speed:    b.Velocity.Minus(other.Velocity).Magnitude(),
				})
			}
		}
	}

	if captured {
		w.compact()
	}
	w.tick++
	return events
}

// applyZones runs buoyancy first, then capture.
func (w *World) applyZones(b *Body, cfg *Config, events []Event) []Event {
	var tank *WaterTank
	for _, z := range w.zones {
		if t, ok := z.(*WaterTank); ok && t.Contains(b) {
			tank = t
			break
		}
	}

	if tank != nil {
		if !b.Floating() {
			b.State = StateFloating
			events = append(events, Event{Type: EventEnterWater, Tick: w.tick, BodyID: b.ID, TargetID: w.zoneIndex(tank), Speed: b.Velocity.Magnitude()})
		}
		tank.submerge(b, cfg)
	} else if b.Floating() {
		b.State = StateFree
		events = append(events, Event{Type: EventExitWater, Tick: w.tick, BodyID: b.ID, TargetID: -1, Speed: b.Velocity.Magnitude()})
	}

	for i, z := range w.zones {
		n, ok := z.(*BasketballNet)
		if !ok || !n.Contains(b) {
			continue
		}
		if err := n.capture(b); err == nil {
			events = append(events, Event{Type: EventCapture, Tick: w.tick, BodyID: b.ID, TargetID: i, Speed: b.Velocity.Magnitude()})
		}
		break
	}
	return events
}

func (w *World) zoneIndex(z Zone) int {
	for i, other := range w.zones {
		if other == z {
			return i
		}
	}
	return -1
}

// compact removes captured bodies, keeping the order of the rest.
func (w *World) compact() {
	live := w.bodies[:0]
	for _, b := range w.bodies {
		if !b.Captured() {
			live = append(live, b)
		}
	}
	for i := len(live); i < len(w.bodies); i++ {
		w.bodies[i] = nil
	}
	w.bodies = live
}

// SetGravity changes gravity for every body from the next tick on.
func (w *World) SetGravity(v float64) error {
	if !finite(v) {
		return invalid("gravity", v, "must be finite")
	}
	w.cfg.Gravity = v
	return nil
}

// SetFriction sets the friction coefficient. Values outside [0, 1] are
// rejected and the previous value is kept.
func (w *World) SetFriction(v float64) error {
	if err := validateUnit("friction", v); err != nil {
		return err
	}
	w.cfg.Friction = v
	return nil
}

// SetGlobalRestitution sets the global restitution and copies it to every
// live body immediately.
func (w *World) SetGlobalRestitution(v float64) error {
	if err := validateUnit("restitution", v); err != nil {
		return err
	}
	w.cfg.Restitution = v
	for _, b := range w.bodies {
		b.Restitution = v
	}
	return nil
}

// LaunchBody overwrites the body's velocity with speed along angle (radians).
func (w *World) LaunchBody(id BodyID, angle, speed float64) error {
	if !finite(angle) || !finite(speed) {
		return invalid("launch", speed, "angle and speed must be finite")
	}
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	b.Velocity = NewVec2(speed*math.Cos(angle), speed*math.Sin(angle))
	return nil
}

// PickBody returns the nearest body whose center lies within its own
// radius of p.
func (w *World) PickBody(p Vec2) (BodyID, bool) {
	var best *Body
	bestDist := math.Inf(1)
	for _, b := range w.bodies {
		d := b.Position.DistanceTo(p)
		if d <= b.Radius && d < bestDist {
			best, bestDist = b, d
		}
	}
	if best == nil {
		return 0, false
	}
	return best.ID, true
}

// BeginDrag puts the body under pointer control.
func (w *World) BeginDrag(id BodyID) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	return b.Transition(StateDragging)
}

// DragTo moves a dragged body by the pointer's frame-to-frame delta.
// Velocity is left untouched.
func (w *World) DragTo(id BodyID, dx, dy float64) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	if !b.Draggable() {
		return ErrInvalidTransition
	}
	delta := NewVec2(dx, dy)
	if !delta.IsFinite() {
		return invalid("drag", dx, "delta must be finite")
	}
	b.Position = b.Position.Plus(delta)
	return nil
}

// EndDrag releases the body back into the simulation.
func (w *World) EndDrag(id BodyID) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	if !b.Draggable() {
		return nil
	}
	return b.Transition(StateFree)
}

// ListBodies returns snapshots of the live bodies in iteration order.
func (w *World) ListBodies() []BodySnapshot {
	out := make([]BodySnapshot, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, b.Snapshot())
	}
	return out
}

// Zones returns snapshots of every zone.
func (w *World) Zones() []ZoneSnapshot {
	out := make([]ZoneSnapshot, 0, len(w.zones))
	for i, z := range w.zones {
		out = append(out, snapshotZone(i, z))
	}
	return out
}
