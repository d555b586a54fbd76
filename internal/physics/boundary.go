package physics

import "math"

// resolveBoundary bounces b off the floor and the side walls. The floor
// applies restitution plus a mass-weighted kick and clamps the body onto the
// floor; side walls reflect fully. There is no ceiling.
func resolveBoundary(b *Body, cfg *Config, tick uint64, events []Event) []Event {
	if b.Position.Y+b.Radius >= cfg.Height {
		speed := math.Abs(b.Velocity.Y)
		b.Velocity.Y *= -b.Restitution
		b.Velocity.Y += b.Mass * cfg.BounceImpulse
		b.Position.Y = cfg.Height - b.Radius
		events = append(events, Event{Type: EventFloor, Tick: tick, BodyID: b.ID, TargetID: -1, Speed: speed})
	}

	if b.Position.X+b.Radius >= cfg.Width || b.Position.X-b.Radius <= 0 {
		b.Velocity.X *= -1
		events = append(events, Event{Type: EventWall, Tick: tick, BodyID: b.ID, TargetID: -1, Speed: math.Abs(b.Velocity.X)})
	}

	return events
}
