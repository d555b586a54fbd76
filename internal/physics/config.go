package physics

import (
	"fmt"
	"math"
)

// GravityModel selects how gravity feeds into vertical velocity.
type GravityModel string

const (
	// GravityAcceleration applies force = m*g then a = force/m, so every body
	// falls at g regardless of mass.
	GravityAcceleration GravityModel = "acceleration"
	// GravityMassScaled adds m*g to the velocity directly.
	GravityMassScaled GravityModel = "mass_scaled"
)

// FrictionModel selects the horizontal damping rule.
type FrictionModel string

const (
	FrictionMassScaled FrictionModel = "mass_scaled" // dx *= 1 - f*m/K
	FrictionDecay      FrictionModel = "decay"       // dx -= dx*f/50
	FrictionNone       FrictionModel = "none"
)

// ResolverKind names a pairwise collision formulation.
type ResolverKind string

const (
	ResolverImpulse       ResolverKind = "impulse"
	ResolverNormalTangent ResolverKind = "normal_tangent"
	ResolverMassRatio     ResolverKind = "mass_ratio"
)

// PairPass selects how often each unordered pair is resolved per tick.
type PairPass string

const (
	// PairPassBoth resolves every ordered pair (i != j): each unordered pair
	// twice, the second time on already-updated velocities.
	PairPassBoth PairPass = "both"
	// PairPassOnce resolves each unordered pair once (j > i).
	PairPassOnce PairPass = "once"
)

// Config holds the simulation parameters of one world.
type Config struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Gravity       float64 `json:"gravity"`
	Friction      float64 `json:"friction"`
	FrictionScale float64 `json:"friction_scale"`
	Restitution   float64 `json:"restitution"`
	BounceImpulse float64 `json:"bounce_impulse"`

	GravityModel  GravityModel  `json:"gravity_model"`
	FrictionModel FrictionModel `json:"friction_model"`
	Resolver      ResolverKind  `json:"resolver"`
	PairPass      PairPass      `json:"pair_pass"`

	BuoyancyFactor float64 `json:"buoyancy_factor"`
	WaterDamping   float64 `json:"water_damping"`
	MinSpeed       float64 `json:"min_speed"`
}

// DefaultConfig returns the parameters of the original sandbox.
func DefaultConfig() Config {
	return Config{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		Gravity:        DefaultGravity,
		Friction:       DefaultFriction,
		FrictionScale:  DefaultFrictionScale,
		Restitution:    DefaultRestitution,
		BounceImpulse:  DefaultBounceImpulse,
		GravityModel:   GravityAcceleration,
		FrictionModel:  FrictionMassScaled,
		Resolver:       ResolverImpulse,
		PairPass:       PairPassBoth,
		BuoyancyFactor: DefaultBuoyancyFactor,
		WaterDamping:   DefaultWaterDamping,
		MinSpeed:       DefaultMinSpeed,
	}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if !finite(c.Width) || c.Width <= 0 {
		return invalid("width", c.Width, "must be positive")
	}
	if !finite(c.Height) || c.Height <= 0 {
		return invalid("height", c.Height, "must be positive")
	}
	if !finite(c.Gravity) {
		return invalid("gravity", c.Gravity, "must be finite")
	}
	if err := validateUnit("friction", c.Friction); err != nil {
		return err
	}
	if err := validateUnit("restitution", c.Restitution); err != nil {
		return err
	}
	if err := validateUnit("water_damping", c.WaterDamping); err != nil {
		return err
	}
	if c.FrictionModel == FrictionMassScaled && (!finite(c.FrictionScale) || c.FrictionScale <= 0) {
		return invalid("friction_scale", c.FrictionScale, "must be positive")
	}
	if !finite(c.BounceImpulse) || !finite(c.BuoyancyFactor) || !finite(c.MinSpeed) || c.MinSpeed < 0 {
		return fmt.Errorf("bounce_impulse, buoyancy_factor and min_speed must be finite and min_speed >= 0")
	}
	switch c.GravityModel {
	case GravityAcceleration, GravityMassScaled:
	default:
		return fmt.Errorf("unknown gravity model %q", c.GravityModel)
	}
	switch c.FrictionModel {
	case FrictionMassScaled, FrictionDecay, FrictionNone:
	default:
		return fmt.Errorf("unknown friction model %q", c.FrictionModel)
	}
	if _, err := NewResolver(c.Resolver); err != nil {
		return err
	}
	switch c.PairPass {
	case PairPassBoth, PairPassOnce:
	default:
		return fmt.Errorf("unknown pair pass %q", c.PairPass)
	}
	return nil
}

func validateUnit(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid(field, v, "must be within [0, 1]")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
