package physics

import "math"

// integrate applies gravity and horizontal friction to b, then advances its
// position by one explicit Euler step.
func integrate(b *Body, cfg *Config) {
	applyGravity(b, cfg)
	applyFriction(b, cfg)

	if math.Abs(b.Velocity.X) < cfg.MinSpeed {
		b.Velocity.X = 0
	}

	b.Position = b.Position.Plus(b.Velocity)
}

func applyGravity(b *Body, cfg *Config) {
	switch cfg.GravityModel {
	case GravityMassScaled:
		b.Velocity.Y += b.Mass * cfg.Gravity
	default:
		force := b.Mass * cfg.Gravity
		b.Velocity.Y += force / b.Mass
	}
}

func applyFriction(b *Body, cfg *Config) {
	switch cfg.FrictionModel {
	case FrictionMassScaled:
		factor := 1 - cfg.Friction*b.Mass/cfg.FrictionScale
		if factor < 0 {
			factor = 0
		}
		b.Velocity.X *= factor
	case FrictionDecay:
		b.Velocity.X -= b.Velocity.X * cfg.Friction / decayDivisor
	}
}
