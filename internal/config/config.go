package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/playmatatu/ballpit/internal/physics"
)

type Config struct {
	// Environment
	Environment string

	// Redis (optional; pub/sub fan-out and idle reaping)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Security
	JWTSecret              string
	ControlTokenTTLMinutes int
	AdminTokenHash         string

	// Sandbox Settings
	SandboxIdleMinutes     int
	IdleWorkerPollInterval int
	SandboxMaxBodies       int
	SandboxInitialBalls    int
	SandboxTickHz          int
	SandboxWater           string // "x,y,w,h" or empty
	SandboxNet             string // "x,y,w,h" or empty
	SandboxSeed            int64

	// Simulation defaults
	SimWidth         float64
	SimHeight        float64
	SimGravity       float64
	SimFriction      float64
	SimRestitution   float64
	SimBounceImpulse float64
	SimBuoyancy      float64
	SimGravityModel  string
	SimFrictionModel string
	SimResolver      string
	SimPairPass      string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Security
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		ControlTokenTTLMinutes: getEnvInt("CONTROL_TOKEN_TTL_MINUTES", 120),
		AdminTokenHash:         getEnv("ADMIN_TOKEN_HASH", ""),

		// Sandbox Settings
		SandboxIdleMinutes:     getEnvInt("SANDBOX_IDLE_MINUTES", 30),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_SECONDS", 15),
		SandboxMaxBodies:       getEnvInt("SANDBOX_MAX_BODIES", 200),
		SandboxInitialBalls:    getEnvInt("SANDBOX_INITIAL_BALLS", 5),
		SandboxTickHz:          getEnvInt("SANDBOX_TICK_HZ", 60),
		SandboxWater:           getEnv("SANDBOX_WATER", ""),
		SandboxNet:             getEnv("SANDBOX_NET", ""),
		SandboxSeed:            int64(getEnvInt("SANDBOX_SEED", 0)),

		// Simulation defaults
		SimWidth:         getEnvFloat("SIM_WIDTH", physics.DefaultWidth),
		SimHeight:        getEnvFloat("SIM_HEIGHT", physics.DefaultHeight),
		SimGravity:       getEnvFloat("SIM_GRAVITY", physics.DefaultGravity),
		SimFriction:      getEnvFloat("SIM_FRICTION", physics.DefaultFriction),
		SimRestitution:   getEnvFloat("SIM_RESTITUTION", physics.DefaultRestitution),
		SimBounceImpulse: getEnvFloat("SIM_BOUNCE_IMPULSE", physics.DefaultBounceImpulse),
		SimBuoyancy:      getEnvFloat("SIM_BUOYANCY", physics.DefaultBuoyancyFactor),
		SimGravityModel:  getEnv("SIM_GRAVITY_MODEL", string(physics.GravityAcceleration)),
		SimFrictionModel: getEnv("SIM_FRICTION_MODEL", string(physics.FrictionMassScaled)),
		SimResolver:      getEnv("SIM_RESOLVER", string(physics.ResolverImpulse)),
		SimPairPass:      getEnv("SIM_PAIR_PASS", string(physics.PairPassBoth)),
	}
}

// Simulation maps the SIM_* settings onto a physics config.
func (c *Config) Simulation() physics.Config {
	sim := physics.DefaultConfig()
	sim.Width = c.SimWidth
	sim.Height = c.SimHeight
	sim.Gravity = c.SimGravity
	sim.Friction = c.SimFriction
	sim.Restitution = c.SimRestitution
	sim.BounceImpulse = c.SimBounceImpulse
	sim.BuoyancyFactor = c.SimBuoyancy
	sim.GravityModel = physics.GravityModel(c.SimGravityModel)
	sim.FrictionModel = physics.FrictionModel(c.SimFrictionModel)
	sim.Resolver = physics.ResolverKind(c.SimResolver)
	sim.PairPass = physics.PairPass(c.SimPairPass)
	return sim
}

// ParseRect parses "x,y,w,h". It returns false for an empty or malformed value.
func ParseRect(s string) (physics.Rect, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return physics.Rect{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return physics.Rect{}, false
		}
		vals[i] = v
	}
	r := physics.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	return r, r.Valid()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
