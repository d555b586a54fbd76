package config

import (
	"testing"

	"github.com/playmatatu/ballpit/internal/physics"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port=%q, want 8080", cfg.Port)
	}
	sim := cfg.Simulation()
	if err := sim.Validate(); err != nil {
		t.Fatalf("default simulation config invalid: %v", err)
	}
	if sim.Gravity != physics.DefaultGravity || sim.Resolver != physics.ResolverImpulse {
		t.Errorf("unexpected simulation defaults: %+v", sim)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SANDBOX_TICK_HZ", "30")
	t.Setenv("SIM_GRAVITY", "0.25")
	t.Setenv("SIM_RESOLVER", "mass_ratio")
	t.Setenv("SIM_PAIR_PASS", "once")
	t.Setenv("SIM_FRICTION", "not-a-number")

	cfg := Load()
	if cfg.Port != "9090" || cfg.SandboxTickHz != 30 {
		t.Errorf("env not applied: port=%q hz=%d", cfg.Port, cfg.SandboxTickHz)
	}
	sim := cfg.Simulation()
	if sim.Gravity != 0.25 || sim.Resolver != physics.ResolverMassRatio || sim.PairPass != physics.PairPassOnce {
		t.Errorf("simulation env not applied: %+v", sim)
	}
	if sim.Friction != physics.DefaultFriction {
		t.Errorf("malformed friction should fall back to default, got %v", sim.Friction)
	}
}

func TestParseRect(t *testing.T) {
	r, ok := ParseRect("10, 20, 300,40")
	if !ok || r != (physics.Rect{X: 10, Y: 20, W: 300, H: 40}) {
		t.Errorf("ParseRect = %+v, %v", r, ok)
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10"} {
		if _, ok := ParseRect(bad); ok {
			t.Errorf("ParseRect(%q) should fail", bad)
		}
	}
}
