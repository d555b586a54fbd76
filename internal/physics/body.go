package physics

import "fmt"

// BodyID identifies a body for the life of its world.
type BodyID int

// BodyState is the explicit lifecycle of a body.
//
//	Free <-> Dragging
//	Free <-> Floating
//	Floating -> Dragging
//	Free | Floating -> Captured (terminal)
type BodyState int

const (
	StateFree BodyState = iota
	StateDragging
	StateFloating
	StateCaptured
)

func (s BodyState) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateDragging:
		return "dragging"
	case StateFloating:
		return "floating"
	case StateCaptured:
		return "captured"
	}
	return "unknown"
}

func (s BodyState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BodyState) UnmarshalText(text []byte) error {
	for _, st := range []BodyState{StateFree, StateDragging, StateFloating, StateCaptured} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown body state %q", text)
}

// Body is a simulated ball. Radius and mass are fixed after spawn.
type Body struct {
	ID          BodyID    `json:"id"`
	Position    Vec2      `json:"position"`
	Velocity    Vec2      `json:"velocity"`
	Radius      float64   `json:"radius"`
	Mass        float64   `json:"mass"`
	Restitution float64   `json:"restitution"`
	Color       string    `json:"color"`
	State       BodyState `json:"state"`
}

// BodySpec describes a body to spawn.
type BodySpec struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`
	Color  string  `json:"color"`
}

// BodySnapshot is the read-only view handed to renderers.
type BodySnapshot struct {
	ID     BodyID    `json:"id"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	DX     float64   `json:"dx"`
	DY     float64   `json:"dy"`
	Radius float64   `json:"radius"`
	Mass   float64   `json:"mass"`
	Color  string    `json:"color"`
	State  BodyState `json:"state"`
}

func (b *Body) Draggable() bool { return b.State == StateDragging }
func (b *Body) Floating() bool  { return b.State == StateFloating }
func (b *Body) Captured() bool  { return b.State == StateCaptured }

// Transition moves the body to next, rejecting any change the lifecycle
// does not allow.
func (b *Body) Transition(next BodyState) error {
	if b.State == next {
		return nil
	}
	ok := false
	switch b.State {
	case StateFree:
		ok = next == StateDragging || next == StateFloating || next == StateCaptured
	case StateDragging:
		ok = next == StateFree
	case StateFloating:
		ok = next == StateFree || next == StateDragging || next == StateCaptured
	}
	if !ok {
		return ErrInvalidTransition
	}
	b.State = next
	return nil
}

// Overlaps reports whether two bodies' circles intersect.
func (b *Body) Overlaps(o *Body) bool {
	return b.Position.DistanceTo(o.Position) < b.Radius+o.Radius
}

// Contains reports whether p lies within the body's own radius of its center.
func (b *Body) Contains(p Vec2) bool {
	return b.Position.DistanceTo(p) <= b.Radius
}

func (b *Body) Snapshot() BodySnapshot {
	return BodySnapshot{
		ID:     b.ID,
		X:      b.Position.X,
		Y:      b.Position.Y,
		DX:     b.Velocity.X,
		DY:     b.Velocity.Y,
		Radius: b.Radius,
		Mass:   b.Mass,
		Color:  b.Color,
		State:  b.State,
	}
}
