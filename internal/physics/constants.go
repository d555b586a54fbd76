package physics

// Defaults for a new world, tuned for an 800x600 canvas stepped at 60 Hz.
const (
	DefaultWidth          = 800.0
	DefaultHeight         = 600.0
	DefaultGravity        = 0.1
	DefaultFriction       = 0.5
	DefaultFrictionScale  = 50.0 // friction 0.5 / 50 == 0.01 per unit mass
	DefaultRestitution    = 0.7
	DefaultBounceImpulse  = 0.1
	DefaultBuoyancyFactor = 0.5
	DefaultWaterDamping   = 0.5
	DefaultMinSpeed       = 0.001

	// decayDivisor is the fixed rate divisor of the decay friction model.
	decayDivisor = 50.0

	// Factory ranges.
	MinRandomRadius = 5.0
	MaxRandomRadius = 15.0
	MinRandomMass   = 1.0
	MaxRandomMass   = 4.0
)
