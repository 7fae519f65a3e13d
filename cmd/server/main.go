// Command server is the CORE composition root: one process wiring the
// Repository, every engine, and the HTTP facade together, and driving
// the Generator/Lifecycle/Telemetry background loops. It collapses what
// could otherwise be one process per engine talking over NATS into a
// single control plane binary, using an env-driven bootstrap and
// signal-based graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fabcore/mescontrol/internal/agents"
	"github.com/fabcore/mescontrol/internal/anomaly"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/coordination"
	"github.com/fabcore/mescontrol/internal/gateway"
	"github.com/fabcore/mescontrol/internal/generator"
	"github.com/fabcore/mescontrol/internal/lifecycle"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/rng"
	"github.com/fabcore/mescontrol/internal/safety"
	"github.com/fabcore/mescontrol/internal/scheduler"
	"github.com/fabcore/mescontrol/internal/telemetry"
	"github.com/fabcore/mescontrol/pkg/messaging"
)

// exit codes
const (
	exitClean            = 0
	exitConfigError      = 1
	exitRepoUnreachable  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	logger, err := logging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return exitConfigError
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", zap.Error(err))
		return exitConfigError
	}

	db, err := connectRepository(cfg, logger)
	if db == nil {
		return exitRepoUnreachable
	}
	defer db.Close()
	repo := repository.NewRetrying(repository.NewPostgres(db))

	natsClient, err := messaging.NewClient(messaging.Config{
		URL:            cfg.NATSUrl,
		Name:           "mescontrol-core",
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  10,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		logger.Warn("nats unavailable, continuing without event publishing", zap.Error(err))
		natsClient = nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	var sink *telemetry.InfluxSink
	if cfg.InfluxToken != "" {
		sink = telemetry.NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer sink.Close()
	}

	var elector *coordination.Elector
	isLeader := func() bool { return true }
	if len(cfg.EtcdEndpoints) > 0 {
		elector, err = coordination.NewElector(cfg.EtcdEndpoints, cfg.LeaderKey)
		if err != nil {
			logger.Warn("etcd leader election unavailable, running as sole writer", zap.Error(err))
		} else {
			defer elector.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if campaignErr := elector.Campaign(ctx); campaignErr != nil {
				logger.Warn("leader campaign failed, running as sole writer", zap.Error(campaignErr))
			}
			cancel()
			isLeader = func() bool {
				ok, _ := elector.IsLeader(context.Background())
				return ok
			}
		}
	}

	clk := clock.NewReal()
	rnd := rng.New(cfg.RandomSeed)

	sched := scheduler.New(repo, clk, *cfg, natsClient)
	lifecycleProc := lifecycle.New(repo, clk, natsClient)
	gen := generator.New(repo, clk, rnd, cfg.Generator)
	detector := anomaly.New(anomaly.DefaultThresholds())
	safetyCircuit := safety.New(repo, clk, natsClient)
	agentSvc := agents.New(repo, clk, cfg.JWTSecret)
	feed := telemetry.NewFeed()
	simulator := telemetry.NewSimulator(repo, clk, rnd, detector, safetyCircuit, sink, feed)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := lifecycleProc.Reconcile(startupCtx); err != nil {
		logger.Error("lifecycle reconciliation failed", zap.Error(err))
	}
	cancel()

	gw := gateway.New(*cfg, gateway.Deps{
		Repo:      repo,
		Clock:     clk,
		Scheduler: sched,
		Lifecycle: lifecycleProc,
		Generator: gen,
		Detector:  detector,
		Safety:    safetyCircuit,
		Agents:    agentSvc,
		Simulator: simulator,
		Feed:      feed,
		Redis:     redisClient,
		Bus:       natsClient,
		Leader:    elector,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runBackgroundLoop(ctx, logger, "lifecycle", cfg.LifecycleTickInterval, gatedLeader(isLeader, gw.LifecycleRunning), func(ctx context.Context) error {
		return lifecycleProc.Tick(ctx)
	})
	runBackgroundLoop(ctx, logger, "generator", cfg.GeneratorTickInterval, isLeader, func(ctx context.Context) error {
		_, err := gen.Tick(ctx)
		return err
	})
	runBackgroundLoop(ctx, logger, "telemetry", cfg.TelemetryTickInterval, gatedLeader(isLeader, gw.TelemetryRunning), func(ctx context.Context) error {
		return simulator.Tick(ctx)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: gw.Router()}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	return exitClean
}

// connectRepository retries the initial connection up to three times
// before giving up, exit code 2.
func connectRepository(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err == nil {
			if pingErr := db.Ping(); pingErr == nil {
				return db, nil
			} else {
				lastErr = pingErr
				db.Close()
			}
		} else {
			lastErr = err
		}
		logger.Warn("repository connect attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		time.Sleep(time.Second)
	}
	logger.Error("repository unreachable after retries", zap.Error(lastErr))
	return nil, lastErr
}

// runBackgroundLoop drives fn every interval until ctx is cancelled. A
// recovered panic is logged and the loop continues at the next tick.
// isLeader gates execution so that only the elected replica runs the
// loop body when coordination is enabled.
func runBackgroundLoop(ctx context.Context, logger *zap.Logger, name string, interval time.Duration, isLeader func() bool, fn func(context.Context) error) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx, logger, name, isLeader, fn)
			}
		}
	}()
}

func tick(ctx context.Context, logger *zap.Logger, name string, isLeader func() bool, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("background loop panic recovered", zap.String("loop", name), zap.Any("panic", r))
		}
	}()
	if !isLeader() {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Error("background loop tick failed", zap.String("loop", name), zap.Error(err))
	}
}

// gatedLeader combines the cluster-wide leader check with a
// per-process admin toggle: both must allow the tick.
func gatedLeader(isLeader func() bool, toggleRunning func() bool) func() bool {
	return func() bool { return isLeader() && toggleRunning() }
}

func logging() (*zap.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
