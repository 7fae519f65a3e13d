// Package config assembles the process-wide Config from environment
// variables using a getEnv-with-default style, centralized into one
// struct for the whole composition root instead of one per microservice.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SchedulerWeights holds the four scoring weights
// Load normalizes these to a convex combination and
// rejects negative weights.
type SchedulerWeights struct {
	Priority   float64
	Efficiency float64
	Deadline   float64
	QueueDepth float64
}

// GeneratorConfig mirrors the generator's tunable knobs. It is also the
// payload accepted by POST /job-generator/config.
type GeneratorConfig struct {
	Enabled          bool
	IntervalSeconds  int
	MinLots          int
	MaxLots          int
	BatchSize        int
	HotLotProb       float64
	PriorityWeights  [5]float64 // index 0 == priority 1
	CustomerWeights  map[string]float64
	RecipeAlphabet   []string
}

// DefaultGeneratorConfig is used whenever no config row exists yet.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Enabled:         true,
		IntervalSeconds: 30,
		MinLots:         20,
		MaxLots:         500,
		BatchSize:       10,
		HotLotProb:      0.05,
		PriorityWeights: [5]float64{0.10, 0.20, 0.35, 0.25, 0.10},
		CustomerWeights: map[string]float64{
			"ACME": 3, "GLOBEX": 2, "INITECH": 2, "UMBRELLA": 1, "SOYLENT": 1,
		},
		RecipeAlphabet: []string{"lithography", "euv", "duv", "etch", "cvd", "pvd", "inspection", "cleaning"},
	}
}

// Config is the full environment-derived configuration for the CORE
// process.
type Config struct {
	HTTPAddr string

	PostgresDSN string
	NATSUrl     string
	RedisAddr   string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	EtcdEndpoints []string
	LeaderKey     string

	JWTSecret string

	CORSAllowOrigins []string
	CORSAllowRegex   string

	RateLimitMax    int
	RateLimitWindow time.Duration

	RandomSeed int64

	SchedulerWeights          SchedulerWeights
	SchedulerMaxAssignments   int
	SchedulerEnforceRecipe    bool
	SchedulerEnforceDeadlines bool
	SchedulerBudget           time.Duration

	LifecycleTickInterval time.Duration
	GeneratorTickInterval time.Duration
	TelemetryTickInterval time.Duration

	Generator GeneratorConfig
}

// Load builds a Config from the process environment, applying defaults
// for anything unset. It never fails over missing generator bootstrap
// rows and instead falls back to DefaultGeneratorConfig.
func Load() (*Config, error) {
	gen := DefaultGeneratorConfig()
	gen.IntervalSeconds = envInt("GENERATOR_INTERVAL_SECONDS", gen.IntervalSeconds)
	gen.MinLots = envInt("GENERATOR_MIN_LOTS", gen.MinLots)
	gen.MaxLots = envInt("GENERATOR_MAX_LOTS", gen.MaxLots)
	gen.BatchSize = envInt("GENERATOR_BATCH_SIZE", gen.BatchSize)
	gen.HotLotProb = envFloat("GENERATOR_HOT_LOT_PROB", gen.HotLotProb)
	gen.Enabled = envBool("GENERATOR_ENABLED", gen.Enabled)

	weights := SchedulerWeights{
		Priority:   envFloat("SCHEDULER_WEIGHT_PRIORITY", 0.3),
		Efficiency: envFloat("SCHEDULER_WEIGHT_EFFICIENCY", 0.3),
		Deadline:   envFloat("SCHEDULER_WEIGHT_DEADLINE", 0.2),
		QueueDepth: envFloat("SCHEDULER_WEIGHT_QUEUE_DEPTH", 0.2),
	}
	normalized, err := NormalizeWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	cfg := &Config{
		HTTPAddr:    ":" + envStr("PORT", "8080"),
		PostgresDSN: envStr("DATABASE_URL", "postgres://localhost:5432/mescontrol?sslmode=disable"),
		NATSUrl:     envStr("NATS_URL", "nats://localhost:4222"),
		RedisAddr:   envStr("REDIS_ADDR", "localhost:6379"),

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  envStr("INFLUX_TOKEN", ""),
		InfluxOrg:    envStr("INFLUX_ORG", "mescontrol"),
		InfluxBucket: envStr("INFLUX_BUCKET", "telemetry"),

		EtcdEndpoints: envList("COORDINATION_ETCD_ENDPOINTS", nil),
		LeaderKey:     envStr("COORDINATION_LEADER_KEY", "/mescontrol/leader"),

		JWTSecret: envStr("JWT_SECRET", "dev-only-signing-secret-change-me"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),
		CORSAllowRegex:   envStr("CORS_ALLOW_REGEX", ""),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 120),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		RandomSeed: int64(envInt("RANDOM_SEED", 42)),

		SchedulerWeights:          normalized,
		SchedulerMaxAssignments:   envInt("SCHEDULER_MAX_ASSIGNMENTS", 50),
		SchedulerEnforceRecipe:    envBool("SCHEDULER_ENFORCE_RECIPE_MATCH", true),
		SchedulerEnforceDeadlines: envBool("SCHEDULER_ENFORCE_DEADLINES", false),
		SchedulerBudget:           time.Duration(envInt("SCHEDULER_BUDGET_SECONDS", 60)) * time.Second,

		LifecycleTickInterval: time.Duration(envInt("LIFECYCLE_TICK_SECONDS", 5)) * time.Second,
		GeneratorTickInterval: time.Duration(gen.IntervalSeconds) * time.Second,
		TelemetryTickInterval: time.Duration(envInt("TELEMETRY_TICK_SECONDS", 2)) * time.Second,

		Generator: gen,
	}

	return cfg, nil
}

// NormalizeWeights rejects negative weights and rescales the remainder
// to sum to exactly 1, so the four scoring weights always form a convex
// combination.
func NormalizeWeights(w SchedulerWeights) (SchedulerWeights, error) {
	if w.Priority < 0 || w.Efficiency < 0 || w.Deadline < 0 || w.QueueDepth < 0 {
		return SchedulerWeights{}, fmt.Errorf("scheduler weights must be non-negative")
	}
	total := w.Priority + w.Efficiency + w.Deadline + w.QueueDepth
	if total <= 0 {
		return SchedulerWeights{Priority: 0.3, Efficiency: 0.3, Deadline: 0.2, QueueDepth: 0.2}, nil
	}
	return SchedulerWeights{
		Priority:   w.Priority / total,
		Efficiency: w.Efficiency / total,
		Deadline:   w.Deadline / total,
		QueueDepth: w.QueueDepth / total,
	}, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
