package physics

import (
	"math"
	"testing"
)

func pair(ax, ay, avx, avy, am, bx, by, bvx, bvy, bm float64) (*Body, *Body) {
	a := &Body{ID: 1, Position: NewVec2(ax, ay), Velocity: NewVec2(avx, avy), Radius: 10, Mass: am, Restitution: 1}
	b := &Body{ID: 2, Position: NewVec2(bx, by), Velocity: NewVec2(bvx, bvy), Radius: 10, Mass: bm, Restitution: 1}
	return a, b
}

func TestHeadOnMassOneToThree(t *testing.T) {
	for _, kind := range []ResolverKind{ResolverNormalTangent, ResolverImpulse} {
		r, err := NewResolver(kind)
		if err != nil {
			t.Fatalf("NewResolver(%s): %v", kind, err)
		}
		// Centers 15 apart, radii sum to 20.
		a, b := pair(0, 0, 2, 0, 1, 15, 0, -2, 0, 3)
		if !a.Overlaps(b) {
			t.Fatalf("%s: bodies should overlap", kind)
		}

		if !r.Resolve(a, b) {
			t.Fatalf("%s: approaching pair was not resolved", kind)
		}

		// v1' = (2*(1-3) + 2*3*(-2)) / 4 = -4
		// v2' = (-2*(3-1) + 2*1*2) / 4 = 0
		if !near(a.Velocity.X, -4) || !near(a.Velocity.Y, 0) {
			t.Errorf("%s: light body velocity=%+v, want (-4, 0)", kind, a.Velocity)
		}
		if !near(b.Velocity.X, 0) || !near(b.Velocity.Y, 0) {
			t.Errorf("%s: heavy body velocity=%+v, want (0, 0)", kind, b.Velocity)
		}
		if math.Abs(b.Velocity.X) >= 2 {
			t.Errorf("%s: heavy body should slow down, got %v", kind, b.Velocity.X)
		}
		if p := a.Mass*a.Velocity.X + b.Mass*b.Velocity.X; !near(p, 1*2+3*-2) {
			t.Errorf("%s: momentum %v, want -4", kind, p)
		}
	}
}

func TestNormalMomentumConserved(t *testing.T) {
	for _, kind := range []ResolverKind{ResolverNormalTangent, ResolverImpulse} {
		r, _ := NewResolver(kind)
		a, b := pair(0, 0, 3, 1, 2, 12, 5, -1, -2, 5)
		n := b.Position.Minus(a.Position).Normalize()
		tangent := n.RightNormal()

		before := a.Mass*a.Velocity.Dot(n) + b.Mass*b.Velocity.Dot(n)
		aTan, bTan := a.Velocity.Dot(tangent), b.Velocity.Dot(tangent)

		if !r.Resolve(a, b) {
			t.Fatalf("%s: pair should resolve", kind)
		}

		after := a.Mass*a.Velocity.Dot(n) + b.Mass*b.Velocity.Dot(n)
		if math.Abs(before-after) > 1e-9 {
			t.Errorf("%s: normal momentum before=%.9f after=%.9f", kind, before, after)
		}
		if math.Abs(a.Velocity.Dot(tangent)-aTan) > 1e-9 || math.Abs(b.Velocity.Dot(tangent)-bTan) > 1e-9 {
			t.Errorf("%s: tangential components changed", kind)
		}
	}
}

func TestImpulseAndNormalTangentAgree(t *testing.T) {
	a1, b1 := pair(0, 0, 3, 1, 2, 12, 5, -1, -2, 5)
	a2, b2 := pair(0, 0, 3, 1, 2, 12, 5, -1, -2, 5)

	ImpulseResolver{}.Resolve(a1, b1)
	NormalTangentResolver{}.Resolve(a2, b2)

	if a1.Velocity.Minus(a2.Velocity).Magnitude() > 1e-9 || b1.Velocity.Minus(b2.Velocity).Magnitude() > 1e-9 {
		t.Errorf("formulations disagree: impulse=(%+v,%+v) normal/tangent=(%+v,%+v)",
			a1.Velocity, b1.Velocity, a2.Velocity, b2.Velocity)
	}
}

func TestSeparatingPairIsLeftAlone(t *testing.T) {
	for _, kind := range []ResolverKind{ResolverNormalTangent, ResolverImpulse} {
		r, _ := NewResolver(kind)
		a, b := pair(0, 0, -1, 0, 1, 15, 0, 1, 0, 1)
		if r.Resolve(a, b) {
			t.Errorf("%s: separating pair was resolved", kind)
		}
		if a.Velocity.X != -1 || b.Velocity.X != 1 {
			t.Errorf("%s: velocities changed: %+v %+v", kind, a.Velocity, b.Velocity)
		}
	}
}

func TestZeroDistanceIsSkipped(t *testing.T) {
	for _, kind := range []ResolverKind{ResolverNormalTangent, ResolverImpulse, ResolverMassRatio} {
		r, _ := NewResolver(kind)
		a, b := pair(5, 5, 1, 0, 1, 5, 5, -1, 0, 1)
		if r.Resolve(a, b) {
			t.Errorf("%s: coincident centers should be skipped", kind)
		}
		if !a.Velocity.IsFinite() || !b.Velocity.IsFinite() {
			t.Errorf("%s: NaN leaked into velocities", kind)
		}
	}
}

func TestMassRatioEqualMassesSwap(t *testing.T) {
	a, b := pair(0, 0, 2, 1, 1, 15, 0, -2, -1, 1)
	MassRatioResolver{}.Resolve(a, b)

	// Normal components swap, tangential components stay.
	if !near(a.Velocity.X, -2) || !near(a.Velocity.Y, 1) {
		t.Errorf("a velocity=%+v, want (-2, 1)", a.Velocity)
	}
	if !near(b.Velocity.X, 2) || !near(b.Velocity.Y, -1) {
		t.Errorf("b velocity=%+v, want (2, -1)", b.Velocity)
	}
}

func TestMassRatioScalesByOwnRestitution(t *testing.T) {
	a, b := pair(0, 0, 2, 0, 1, 15, 0, -2, 0, 1)
	a.Restitution = 0.5
	MassRatioResolver{}.Resolve(a, b)

	if !near(a.Velocity.X, -1) {
		t.Errorf("a dx=%v, want -1", a.Velocity.X)
	}
	if !near(b.Velocity.X, 2) {
		t.Errorf("b dx=%v, want 2", b.Velocity.X)
	}
}

func twoBodyWorld(t *testing.T, resolver ResolverKind, pass PairPass) (*World, BodyID, BodyID) {
	t.Helper()
	cfg := quietConfig()
	cfg.Resolver = resolver
	cfg.PairPass = pass
	cfg.Restitution = 1
	w := newTestWorld(t, cfg)
	a := spawn(t, w, BodySpec{X: 100, Y: 100, DX: 2, Radius: 10, Mass: 1})
	b := spawn(t, w, BodySpec{X: 115, Y: 100, DX: -2, Radius: 10, Mass: 1})
	return w, a, b
}

func TestMassRatioDoublePassUndoesSwap(t *testing.T) {
	w, aID, bID := twoBodyWorld(t, ResolverMassRatio, PairPassBoth)
	w.Step()
	a, _ := w.Body(aID)
	b, _ := w.Body(bID)

	// a resolves against b and they swap; b then resolves against a from
	// its side and swaps them back.
	if math.Abs(a.Velocity.X-2) > 1e-9 || math.Abs(b.Velocity.X+2) > 1e-9 {
		t.Errorf("double pass: a dx=%v b dx=%v, want 2 and -2", a.Velocity.X, b.Velocity.X)
	}
}

func TestMassRatioSinglePassSwaps(t *testing.T) {
	w, aID, bID := twoBodyWorld(t, ResolverMassRatio, PairPassOnce)
	w.Step()
	a, _ := w.Body(aID)
	b, _ := w.Body(bID)
	if math.Abs(a.Velocity.X+2) > 1e-9 || math.Abs(b.Velocity.X-2) > 1e-9 {
		t.Errorf("single pass: a dx=%v b dx=%v, want -2 and 2", a.Velocity.X, b.Velocity.X)
	}
}

func TestGuardedResolverIgnoresSecondPass(t *testing.T) {
	for _, pass := range []PairPass{PairPassBoth, PairPassOnce} {
		w, aID, bID := twoBodyWorld(t, ResolverImpulse, pass)
		events := w.Step()
		a, _ := w.Body(aID)
		b, _ := w.Body(bID)
		if !near(a.Velocity.X, -2) || !near(b.Velocity.X, 2) {
			t.Errorf("%s: a dx=%v b dx=%v, want -2 and 2", pass, a.Velocity.X, b.Velocity.X)
		}
		balls := 0
		for _, e := range events {
			if e.Type == EventBall {
				balls++
			}
		}
		if balls != 1 {
			t.Errorf("%s: expected exactly one ball event, got %d", pass, balls)
		}
	}
}

func TestInsertionOrderMatters(t *testing.T) {
	run := func(swap bool) []BodySnapshot {
		cfg := quietConfig()
		cfg.Resolver = ResolverMassRatio
		cfg.Restitution = 0.8
		w := newTestWorld(t, cfg)
		specs := []BodySpec{
			{X: 100, Y: 100, DX: 2, DY: 0.5, Radius: 10, Mass: 1},
			{X: 112, Y: 104, DX: -1, Radius: 12, Mass: 3},
		}
		if swap {
			specs[0], specs[1] = specs[1], specs[0]
		}
		for _, s := range specs {
			spawn(t, w, s)
		}
		w.Step()
		return w.ListBodies()
	}

	forward := run(false)
	reversed := run(true)
	// Compare the light body in both runs.
	if forward[0].DX == reversed[1].DX && forward[0].DY == reversed[1].DY {
		t.Errorf("reordering the live set should change the trajectory")
	}
}
