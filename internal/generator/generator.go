// Package generator maintains the pending-lot backlog. Per-lot synthesis
// is independent and embarrassingly parallel, so the batch fan-out uses
// the same errgroup-bounded pattern as the Scheduler's candidate
// scoring; the backlog-check-then-top-up loop runs as a periodic
// maintenance goroutine alongside the other background ticks.
package generator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/rng"
)

const maxSynthesisWorkers = 8

// waferCountRange gives the [lo, hi] wafer count band per priority.
var waferCountRange = map[int][2]int{
	1: {25, 25},
	2: {50, 100},
	3: {75, 150},
	4: {100, 200},
	5: {150, 300},
}

// deadlineDayRange gives the [low, high] day offset band per priority,
// tighter for hotter priorities.
var deadlineDayRange = map[int][2]float64{
	1: {1, 2},
	2: {2, 4},
	3: {3, 6},
	4: {5, 9},
	5: {7, 14},
}

// ProvenanceEntry records why and how one lot was synthesized.
type ProvenanceEntry struct {
	LotID       uuid.UUID
	Trigger     string // "scheduler_tick" or "manual"
	ConfigSnap  config.GeneratorConfig
	GeneratedAt time.Time
}

// Generator synthesizes lots to maintain the target backlog.
type Generator struct {
	repo repository.Repository
	clk  clock.Clock
	rnd  *rng.Source

	mu         sync.Mutex
	cfg        config.GeneratorConfig
	provenance []ProvenanceEntry
}

func New(repo repository.Repository, clk clock.Clock, rnd *rng.Source, cfg config.GeneratorConfig) *Generator {
	return &Generator{repo: repo, clk: clk, rnd: rnd, cfg: cfg}
}

// Config returns the current generation config.
func (g *Generator) Config() config.GeneratorConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// SetConfig replaces the generation config, e.g. from POST /job-generator/config.
func (g *Generator) SetConfig(cfg config.GeneratorConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

// Tick reads current backlog counts and tops it up if below min_lots.
func (g *Generator) Tick(ctx context.Context) ([]*models.Lot, error) {
	return g.generate(ctx, "scheduler_tick")
}

// GenerateManual synthesizes a batch outside the regular tick, e.g. via
// an admin endpoint.
func (g *Generator) GenerateManual(ctx context.Context) ([]*models.Lot, error) {
	return g.generate(ctx, "manual")
}

func (g *Generator) generate(ctx context.Context, trigger string) ([]*models.Lot, error) {
	cfg := g.Config()
	if !cfg.Enabled {
		return nil, nil
	}

	counts, err := g.repo.CountLotsByStatus(ctx)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("generator: count lots: %w", err))
	}
	if counts.Total() >= cfg.MinLots {
		return nil, nil
	}

	batch := cfg.BatchSize
	if counts.Total()+batch > cfg.MaxLots {
		batch = cfg.MaxLots - counts.Total()
	}
	if batch <= 0 {
		return nil, nil
	}

	now := g.clk.Now()

	// hot_lot, priority, and the name's sequence number all come from a
	// single shared counter and a single RNG stream, so they're decided
	// sequentially before the rest of each lot's fields are synthesized
	// in parallel.
	plans := make([]lotPlan, batch)
	for i := range plans {
		hot := g.rnd.Bernoulli(cfg.HotLotProb)
		priority := 1
		if !hot {
			priority = g.rnd.WeightedChoice(cfg.PriorityWeights[:]) + 1
		}
		plans[i] = lotPlan{hot: hot, priority: priority}
	}
	if err := g.assignNames(ctx, now, plans); err != nil {
		return nil, err
	}

	lots := make([]*models.Lot, batch)
	g2, _ := errgroup.WithContext(ctx)
	g2.SetLimit(maxSynthesisWorkers)
	for i := 0; i < batch; i++ {
		i := i
		g2.Go(func() error {
			lots[i] = g.synthesize(plans[i], now, cfg)
			return nil
		})
	}
	_ = g2.Wait()

	for _, lot := range lots {
		if err := g.repo.CreateLot(ctx, lot); err != nil {
			return nil, apierr.Unavailable(fmt.Errorf("generator: create lot: %w", err))
		}
	}

	g.mu.Lock()
	for _, lot := range lots {
		g.provenance = append(g.provenance, ProvenanceEntry{
			LotID: lot.ID, Trigger: trigger, ConfigSnap: cfg, GeneratedAt: now,
		})
	}
	g.mu.Unlock()

	return lots, nil
}

// Provenance returns the in-memory generation log.
func (g *Generator) Provenance() []ProvenanceEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ProvenanceEntry, len(g.provenance))
	copy(out, g.provenance)
	return out
}

// lotPlan is the sequential part of synthesis: hot_lot, priority, and
// the assigned name, all drawn from shared, order-sensitive state.
type lotPlan struct {
	hot      bool
	priority int
	name     string
}

// synthesize produces one lot from a precomputed plan. Each call only
// touches the shared RNG, which is mutex-guarded, so concurrent synthesis
// across the errgroup is safe.
func (g *Generator) synthesize(plan lotPlan, now time.Time, cfg config.GeneratorConfig) *models.Lot {
	wc := waferCountRange[plan.priority]
	waferCount := g.rnd.IntRange(wc[0], wc[1])

	recipe := cfg.RecipeAlphabet[g.rnd.IntRange(0, len(cfg.RecipeAlphabet)-1)]

	dr := deadlineDayRange[plan.priority]
	deadline := now.Add(time.Duration(g.rnd.Uniform(dr[0]*24, dr[1]*24)) * time.Hour)

	estimatedMinutes := 60 + g.rnd.IntRange(0, 600)

	return &models.Lot{
		ID:                       uuid.New(),
		Name:                     plan.name,
		WaferCount:               waferCount,
		Priority:                 plan.priority,
		HotLot:                   plan.hot,
		RecipeKind:               recipe,
		Status:                   models.LotPending,
		CreatedAt:                now,
		Deadline:                 &deadline,
		EstimatedDurationMinutes: estimatedMinutes,
		CustomerTag:              weightedCustomer(g.rnd, cfg.CustomerWeights),
		UpdatedAt:                now,
		Version:                  1,
	}
}

// assignNames fills in plans[i].name, starting at the smallest unused
// sequence number for today across both naming spaces.
func (g *Generator) assignNames(ctx context.Context, now time.Time, plans []lotPlan) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	prefix := fmt.Sprintf("AUTO-%d-", now.Year())
	hotPrefix := fmt.Sprintf("HOT-AUTO-%d-", now.Year())

	existing, err := g.repo.LotNamesWithPrefix(ctx, prefix, dayStart)
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("generator: lot names: %w", err))
	}
	hotExisting, err := g.repo.LotNamesWithPrefix(ctx, hotPrefix, dayStart)
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("generator: hot lot names: %w", err))
	}

	used := make(map[int]bool)
	for _, n := range append(existing, hotExisting...) {
		var s int
		if _, err := fmt.Sscanf(lastSegment(n), "%d", &s); err == nil {
			used[s] = true
		}
	}

	seq := 1001
	for i := range plans {
		for used[seq] {
			seq++
		}
		used[seq] = true
		if plans[i].hot {
			plans[i].name = fmt.Sprintf("%s%d", hotPrefix, seq)
		} else {
			plans[i].name = fmt.Sprintf("%s%d", prefix, seq)
		}
	}
	return nil
}

func lastSegment(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '-' {
			return name[i+1:]
		}
	}
	return name
}

// weightedCustomer picks a customer tag proportional to its weight.
// Go randomizes map iteration order, so the candidate keys are sorted
// before being handed to rnd.WeightedChoice: an unsorted order would
// make the same seed land on a different customer from one call to the
// next, breaking reproducibility under a fixed seed.
func weightedCustomer(rnd *rng.Source, weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = weights[k]
	}
	return keys[rnd.WeightedChoice(vals)]
}
