package physics

import (
	"fmt"
	"math"
	"math/rand"
)

// Factory builds randomized bodies the way the original sandbox seeds its
// scene: anywhere across the width, in the top half, drifting sideways and
// thrown at a random angle.
type Factory struct {
	rng *rand.Rand
}

// NewFactory returns a factory drawing from rng.
func NewFactory(rng *rand.Rand) *Factory {
	return &Factory{rng: rng}
}

// NewSeededFactory is a convenience for a factory with its own source.
func NewSeededFactory(seed int64) *Factory {
	return NewFactory(rand.New(rand.NewSource(seed)))
}

// Random returns a body spec inside a width x height area.
func (f *Factory) Random(width, height float64) BodySpec {
	angle := f.rng.Float64() * math.Pi
	speed := f.rng.Float64()*3 + 2
	return BodySpec{
		X:      f.rng.Float64() * width,
		Y:      f.rng.Float64() * height / 2,
		DX:     f.rng.Float64()*4 - 2,
		DY:     math.Sin(angle) * speed,
		Radius: f.rng.Float64()*(MaxRandomRadius-MinRandomRadius) + MinRandomRadius,
		Mass:   f.rng.Float64()*(MaxRandomMass-MinRandomMass) + MinRandomMass,
		Color:  f.Color(),
	}
}

// Color returns a random CSS rgb() color.
func (f *Factory) Color() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", f.rng.Intn(256), f.rng.Intn(256), f.rng.Intn(256))
}

// Populate spawns n random bodies into w.
func (f *Factory) Populate(w *World, n int) ([]BodyID, error) {
	cfg := w.Config()
	ids := make([]BodyID, 0, n)
	for i := 0; i < n; i++ {
		id, err := w.Spawn(f.Random(cfg.Width, cfg.Height))
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
