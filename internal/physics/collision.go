package physics

import (
	"fmt"
	"math"
)

// CollisionResolver updates the velocities of two overlapping bodies.
// It reports whether anything changed. a is the body being updated this
// tick; b is the other body.
type CollisionResolver interface {
	Resolve(a, b *Body) bool
}

// NewResolver returns the resolver for kind.
func NewResolver(kind ResolverKind) (CollisionResolver, error) {
	switch kind {
	case ResolverImpulse:
		return ImpulseResolver{}, nil
	case ResolverNormalTangent:
		return NormalTangentResolver{}, nil
	case ResolverMassRatio:
		return MassRatioResolver{}, nil
	}
	return nil, fmt.Errorf("unknown collision resolver %q", kind)
}

// contactNormal returns the unit vector from a to b, or false when the
// centers coincide and no direction exists.
func contactNormal(a, b *Body) (Vec2, bool) {
	d := b.Position.Minus(a.Position)
	if d.MagnitudeSquared() == 0 {
		return Vec2{}, false
	}
	return d.Normalize(), true
}

// ImpulseResolver applies an elastic impulse along the contact normal when
// the bodies approach each other.
type ImpulseResolver struct{}

func (ImpulseResolver) Resolve(a, b *Body) bool {
	n, ok := contactNormal(a, b)
	if !ok {
		return false
	}

	relVelNormal := b.Velocity.Minus(a.Velocity).Dot(n)
	if relVelNormal >= 0 {
		return false
	}

	impulse := -2 * relVelNormal / (a.Mass + b.Mass)
	a.Velocity = a.Velocity.Minus(n.Times(impulse * b.Mass))
	b.Velocity = b.Velocity.Plus(n.Times(impulse * a.Mass))
	return true
}

// NormalTangentResolver decomposes both velocities along the contact normal
// and tangent, applies the 1-D elastic collision to the normal parts and
// leaves the tangential parts untouched.
type NormalTangentResolver struct{}

func (NormalTangentResolver) Resolve(a, b *Body) bool {
	n, ok := contactNormal(a, b)
	if !ok {
		return false
	}
	t := n.RightNormal()

	aNormal, aTangent := a.Velocity.Dot(n), a.Velocity.Dot(t)
	bNormal, bTangent := b.Velocity.Dot(n), b.Velocity.Dot(t)
	if bNormal-aNormal >= 0 {
		return false
	}

	m1, m2 := a.Mass, b.Mass
	newANormal := (aNormal*(m1-m2) + 2*m2*bNormal) / (m1 + m2)
	newBNormal := (bNormal*(m2-m1) + 2*m1*aNormal) / (m1 + m2)

	a.Velocity = n.Times(newANormal).Plus(t.Times(aTangent))
	b.Velocity = n.Times(newBNormal).Plus(t.Times(bTangent))
	return true
}

// MassRatioResolver rotates both velocities into the contact frame, blends
// the normal components through massRatio = mA/mB and scales each result by
// the body's own restitution. It has no approach guard and does not conserve
// momentum once restitution is below one.
type MassRatioResolver struct{}

func (MassRatioResolver) Resolve(a, b *Body) bool {
	d := b.Position.Minus(a.Position)
	if d.MagnitudeSquared() == 0 {
		return false
	}

	angle := math.Atan2(d.Y, d.X)
	sin, cos := math.Sincos(angle)

	u1 := rotate(a.Velocity, sin, cos)
	u2 := rotate(b.Velocity, sin, cos)

	massRatio := a.Mass / b.Mass
	n1 := a.Restitution * (u1.X*(massRatio-1) + 2*u2.X) / (massRatio + 1)
	n2 := b.Restitution * (u2.X*(1-massRatio) + 2*massRatio*u1.X) / (massRatio + 1)

	a.Velocity = unrotate(Vec2{X: n1, Y: u1.Y}, sin, cos)
	b.Velocity = unrotate(Vec2{X: n2, Y: u2.Y}, sin, cos)
	return true
}

// rotate expresses v in a frame turned by the contact angle.
func rotate(v Vec2, sin, cos float64) Vec2 {
	return Vec2{
		X: v.X*cos + v.Y*sin,
		Y: v.Y*cos - v.X*sin,
	}
}

func unrotate(v Vec2, sin, cos float64) Vec2 {
	return Vec2{
		X: v.X*cos - v.Y*sin,
		Y: v.Y*cos + v.X*sin,
	}
}
