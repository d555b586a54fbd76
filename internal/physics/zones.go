package physics

// ZoneKind names the behaviour of an environment zone.
type ZoneKind string

const (
	ZoneWater ZoneKind = "water"
	ZoneNet   ZoneKind = "net"
)

// Rect is an axis-aligned rectangle; (X, Y) is the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.W > 0 && r.H > 0 && finite(r.X) && finite(r.Y) && finite(r.W) && finite(r.H)
}

// Zone is a rectangular region whose membership test uses the body's
// center point only, not a true circle/rectangle overlap.
type Zone interface {
	Kind() ZoneKind
	Bounds() Rect
	Contains(b *Body) bool
}

// ZoneSnapshot is the read-only view of a zone for renderers.
type ZoneSnapshot struct {
	Index    int      `json:"index"`
	Kind     ZoneKind `json:"kind"`
	Bounds   Rect     `json:"bounds"`
	Occupied bool     `json:"occupied,omitempty"`
	Score    int      `json:"score,omitempty"`
}

// WaterTank damps and lifts bodies whose center is inside it.
type WaterTank struct {
	Rect Rect
}

func NewWaterTank(r Rect) *WaterTank {
	return &WaterTank{Rect: r}
}

func (w *WaterTank) Kind() ZoneKind { return ZoneWater }
func (w *WaterTank) Bounds() Rect   { return w.Rect }

// Contains is strict on the top and sides; only the bottom edge accounts
// for the radius so a resting ball on the tank floor still counts.
func (w *WaterTank) Contains(b *Body) bool {
	p := b.Position
	return p.X > w.Rect.X &&
		p.X < w.Rect.X+w.Rect.W &&
		p.Y > w.Rect.Y &&
		p.Y <= w.Rect.Y+w.Rect.H-b.Radius
}

// submerge halves (by cfg.WaterDamping) the vertical velocity and applies
// the buoyancy decrement. Called every tick the body stays inside.
func (w *WaterTank) submerge(b *Body, cfg *Config) {
	b.Velocity.Y *= cfg.WaterDamping
	b.Velocity.Y -= cfg.BuoyancyFactor * cfg.Gravity
}

// BasketballNet captures bodies whose center enters it.
type BasketballNet struct {
	Rect     Rect
	Occupied bool // a body was captured during the latest tick
	Score    int  // bodies captured so far
}

func NewBasketballNet(r Rect) *BasketballNet {
	return &BasketballNet{Rect: r}
}

func (n *BasketballNet) Kind() ZoneKind { return ZoneNet }
func (n *BasketballNet) Bounds() Rect   { return n.Rect }

func (n *BasketballNet) Contains(b *Body) bool {
	p := b.Position
	return p.X >= n.Rect.X &&
		p.X <= n.Rect.X+n.Rect.W &&
		p.Y >= n.Rect.Y &&
		p.Y <= n.Rect.Y+n.Rect.H
}

func (n *BasketballNet) capture(b *Body) error {
	if err := b.Transition(StateCaptured); err != nil {
		return err
	}
	n.Occupied = true
	n.Score++
	return nil
}

func snapshotZone(i int, z Zone) ZoneSnapshot {
	s := ZoneSnapshot{Index: i, Kind: z.Kind(), Bounds: z.Bounds()}
	if n, ok := z.(*BasketballNet); ok {
		s.Occupied = n.Occupied
		s.Score = n.Score
	}
	return s
}
