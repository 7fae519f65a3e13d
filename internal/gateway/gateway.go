// Package gateway exposes the CORE control plane over HTTP: gin routes
// grouped under /api/v1, JWT-protected admin and agent endpoints, a
// Redis-backed distributed rate limiter, and a live WebSocket feed,
// using route groups plus middleware. A circuit breaker from the
// per-route breaker group guards the dispatch run; no other route goes
// through a breaker.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fabcore/mescontrol/internal/agents"
	"github.com/fabcore/mescontrol/internal/anomaly"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/coordination"
	"github.com/fabcore/mescontrol/internal/generator"
	"github.com/fabcore/mescontrol/internal/lifecycle"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/safety"
	"github.com/fabcore/mescontrol/internal/scheduler"
	"github.com/fabcore/mescontrol/internal/telemetry"
	"github.com/fabcore/mescontrol/pkg/circuit"
	"github.com/fabcore/mescontrol/pkg/messaging"
)

// Gateway is the HTTP facade over every CORE engine.
type Gateway struct {
	router *gin.Engine
	cfg    config.Config
	clock  clock.Clock

	repo      repository.Repository
	scheduler *scheduler.Scheduler
	lifecycle *lifecycle.Processor
	generator *generator.Generator
	detector  *anomaly.Detector
	safety    *safety.Circuit
	agents    *agents.Service
	simulator *telemetry.Simulator
	feed      *telemetry.Feed

	breakers    *circuit.BreakerGroup
	rateLimiter *RateLimiter

	lifecycleToggle *LoopToggle
	telemetryToggle *LoopToggle

	bus    *messaging.Client
	leader *coordination.Elector
}

// Deps bundles every engine the gateway dispatches to, so New's
// signature doesn't grow a parameter every time a component gains one.
type Deps struct {
	Repo      repository.Repository
	Clock     clock.Clock
	Scheduler *scheduler.Scheduler
	Lifecycle *lifecycle.Processor
	Generator *generator.Generator
	Detector  *anomaly.Detector
	Safety    *safety.Circuit
	Agents    *agents.Service
	Simulator *telemetry.Simulator
	Feed      *telemetry.Feed
	Redis     *redis.Client

	// Bus and Leader are optional: a single-instance deployment runs with
	// both nil, and /api/v1/healthz reports them as not configured rather
	// than degraded.
	Bus    *messaging.Client
	Leader *coordination.Elector
}

func New(cfg config.Config, d Deps) *Gateway {
	breakers := circuit.NewBreakerGroup(circuit.Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		HalfOpenMax: 3,
	})

	g := &Gateway{
		router:    gin.Default(),
		cfg:       cfg,
		clock:     d.Clock,
		repo:      d.Repo,
		scheduler: d.Scheduler,
		lifecycle: d.Lifecycle,
		generator: d.Generator,
		detector:  d.Detector,
		safety:    d.Safety,
		agents:    d.Agents,
		simulator: d.Simulator,
		feed:      d.Feed,
		breakers:  breakers,
		rateLimiter: NewRateLimiter(d.Redis, cfg.RateLimitMax, cfg.RateLimitWindow),

		lifecycleToggle: NewLoopToggle(true),
		telemetryToggle: NewLoopToggle(true),

		bus:    d.Bus,
		leader: d.Leader,
	}

	g.setupRoutes()
	return g
}

func (g *Gateway) Router() *gin.Engine { return g.router }

// LifecycleRunning and TelemetryRunning let the composition root's
// background loops respect the admin on/off toggles exposed at
// /jobs/lifecycle/{start,stop} and /sensors/{start,stop}.
func (g *Gateway) LifecycleRunning() bool { return g.lifecycleToggle.Running() }
func (g *Gateway) TelemetryRunning() bool { return g.telemetryToggle.Running() }

func (g *Gateway) Run(addr string) error {
	return g.router.Run(addr)
}

func (g *Gateway) setupRoutes() {
	g.router.Use(g.tracingMiddleware())
	g.router.Use(g.corsMiddleware())
	g.router.Use(g.rateLimitMiddleware())

	g.router.GET("/health", g.healthCheck)

	v1 := g.router.Group("/api/v1")
	{
		v1.GET("/healthz", g.healthzCheck)

		dispatch := v1.Group("/dispatch", g.authMiddleware())
		dispatch.POST("/run", g.runDispatch)
		dispatch.GET("/queue", g.dispatchQueue)
		dispatch.GET("/history", g.dispatchHistory)

		jobs := v1.Group("/jobs", g.authMiddleware())
		jobs.GET("", g.listLots)
		jobs.GET("/queue", g.dispatchQueue)
		jobs.GET("/lifecycle/status", g.lifecycleStatus)
		jobs.POST("/lifecycle/start", g.lifecycleStart)
		jobs.POST("/lifecycle/stop", g.lifecycleStop)
		jobs.GET("/:id", g.getLot)
		jobs.POST("", g.createLot)
		jobs.PATCH("/:id", g.patchLot)
		jobs.POST("/:id/cancel", g.cancelLot)
		jobs.POST("/:id/start", g.startLot)
		jobs.POST("/:id/complete", g.completeLot)

		machines := v1.Group("/machines", g.authMiddleware())
		machines.GET("", g.listEquipment)
		machines.GET("/:id", g.getEquipment)
		machines.PATCH("/:id", g.patchEquipment)
		machines.GET("/:id/stats", g.equipmentStats)
		machines.GET("/:id/sensor-readings", g.equipmentSensorReadings)

		gen := v1.Group("/job-generator", g.authMiddleware())
		gen.GET("/config", g.generatorGetConfig)
		gen.POST("/config", g.generatorSetConfig)
		gen.GET("/status", g.generatorStatus)
		gen.POST("/start", g.generatorStart)
		gen.POST("/stop", g.generatorStop)
		gen.POST("/enable", g.generatorEnable)
		gen.POST("/disable", g.generatorDisable)
		gen.POST("/generate", g.generatorGenerate)
		gen.POST("/generate-batch", g.generatorGenerateBatch)
		gen.GET("/counts", g.generatorCounts)
		gen.GET("/generation-log", g.generatorLog)

		aegis := v1.Group("/aegis", g.authMiddleware())
		aegis.POST("/incidents", g.createIncident)
		aegis.GET("/incidents", g.listIncidents)
		aegis.GET("/incidents/:id", g.getIncident)
		aegis.POST("/incidents/:id/approve", g.approveIncident)
		aegis.POST("/incidents/:id/resolve", g.resolveIncident)
		aegis.POST("/agents/register", g.registerAgent)
		aegis.GET("/agents", g.listAgents)
		aegis.POST("/agents/:id/heartbeat", g.heartbeatAgent)
		aegis.GET("/safety-circuit", g.safetyCircuitSummary)
		aegis.GET("/summary", g.aegisSummary)
		aegis.POST("/telemetry/analyze", g.analyzeTelemetry)
		aegis.GET("/stream", g.streamFeed)

		sensors := v1.Group("/sensors", g.authMiddleware())
		sensors.POST("/simulate", g.sensorsSimulate)
		sensors.POST("/start", g.sensorsStart)
		sensors.POST("/stop", g.sensorsStop)
		sensors.GET("/status", g.sensorsStatus)
		sensors.POST("/generate-anomaly", g.sensorsGenerateAnomaly)
	}
}

func (g *Gateway) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// healthzCheck reports readiness by actually exercising the repository
// connection and, when configured, the message bus and leader-election
// session. A component that is simply unconfigured (single-instance mode
// with no NATS/etcd wiring) is reported "disabled", not "down".
func (g *Gateway) healthzCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	repoStatus := "ok"
	if _, err := g.repo.CountLotsByStatus(ctx); err != nil {
		repoStatus = "down"
	}

	busStatus := "disabled"
	if g.bus != nil {
		if g.bus.IsConnected() {
			busStatus = "ok"
		} else {
			busStatus = "down"
		}
	}

	leaderStatus := "disabled"
	if g.leader != nil {
		if leading, err := g.leader.IsLeader(ctx); err != nil {
			leaderStatus = "down"
		} else if leading {
			leaderStatus = "leader"
		} else {
			leaderStatus = "follower"
		}
	}

	overall := http.StatusOK
	if repoStatus != "ok" || busStatus == "down" || leaderStatus == "down" {
		overall = http.StatusServiceUnavailable
	}

	c.JSON(overall, gin.H{
		"repository":      repoStatus,
		"message_bus":     busStatus,
		"leader_election": leaderStatus,
	})
}
