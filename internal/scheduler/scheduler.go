// Package scheduler implements the constraint-satisfying, multi-objective
// matcher from lots to equipment: snapshot reads, a bounded-concurrency
// scoring pass over a greedy sort-then-walk algorithm, a single
// transactional write, and an event publish on success.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/pkg/messaging"
	"github.com/fabcore/mescontrol/pkg/priorityqueue"
)

// maxScoringWorkers bounds the errgroup fan-out over free equipment per
// lot so a backlog of thousands of machines can't spawn thousands of
// goroutines in one batch.
const maxScoringWorkers = 8

// Assignment is one lot->equipment pairing the batch committed.
type Assignment struct {
	LotID       uuid.UUID
	EquipmentID uuid.UUID
	Reason      string
	Score       decimal.Decimal
}

// Unassigned explains why a lot was left PENDING.
type Unassigned struct {
	LotID  uuid.UUID
	Reason string
}

// BatchResult is the outcome of one dispatch run.
type BatchResult struct {
	Assignments []Assignment
	Unassigned  []Unassigned
}

// Scheduler is the CORE dispatch engine.
type Scheduler struct {
	repo  repository.Repository
	clock clock.Clock
	cfg   config.Config
	nats  *messaging.Client
}

func New(repo repository.Repository, clk clock.Clock, cfg config.Config, nats *messaging.Client) *Scheduler {
	return &Scheduler{repo: repo, clock: clk, cfg: cfg, nats: nats}
}

// RunBatch computes up to SchedulerMaxAssignments lot->equipment
// assignments and commits them in a single transaction.
func (s *Scheduler) RunBatch(ctx context.Context) (*BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SchedulerBudget)
	defer cancel()

	pendingStatus := models.LotPending
	lots, err := s.repo.ListLots(ctx, repository.LotFilter{Status: &pendingStatus})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("list pending lots: %w", err))
	}
	equipment, err := s.repo.ListEquipment(ctx, repository.EquipmentFilter{})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("list equipment: %w", err))
	}
	depth, err := s.repo.QueueDepth(ctx)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("queue depth: %w", err))
	}

	free := make(map[uuid.UUID]*models.Equipment, len(equipment))
	for _, eq := range equipment {
		if eq.Available() {
			free[eq.ID] = eq
		}
	}

	sortLots(lots)

	result := &BatchResult{}
	now := s.clock.Now()

	for _, lot := range lots {
		if len(result.Assignments) >= s.cfg.SchedulerMaxAssignments {
			break
		}
		candidates := s.candidatesFor(ctx, lot, free, depth, now)
		if len(candidates) == 0 {
			result.Unassigned = append(result.Unassigned, Unassigned{
				LotID:  lot.ID,
				Reason: unassignedReason(lot, free, s.cfg.SchedulerEnforceRecipe),
			})
			continue
		}

		best := candidates[0]
		for _, c := range candidates[1:] {
			if betterCandidate(c, best, depth[c.equipment.ID], depth[best.equipment.ID]) {
				best = c
			}
		}

		delete(free, best.equipment.ID)
		depth[best.equipment.ID]++

		lot.Status = models.LotQueued
		lot.AssignedEquipmentID = &best.equipment.ID
		lot.UpdatedAt = now

		result.Assignments = append(result.Assignments, Assignment{
			LotID:       lot.ID,
			EquipmentID: best.equipment.ID,
			Reason:      best.reason,
			Score:       best.score,
		})
	}

	if len(result.Assignments) == 0 {
		return result, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, a := range result.Assignments {
			lot := lotByID(lots, a.LotID)
			if err := tx.UpdateLot(ctx, lot); err != nil {
				return err
			}
			rec := &models.DispatchRecord{
				ID:           uuid.New(),
				LotID:        a.LotID,
				EquipmentID:  a.EquipmentID,
				Reason:       a.Reason,
				Score:        a.Score,
				DispatchedAt: now,
			}
			if err := tx.CreateDispatchRecord(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("commit dispatch batch: %w", err))
	}

	if s.nats != nil {
		for _, a := range result.Assignments {
			ev, err := messaging.NewEnvelope(messaging.SubjectDispatchDecision, a.LotID, messaging.DispatchDecisionEvent{
				LotID: a.LotID, EquipmentID: a.EquipmentID, Reason: a.Reason, Score: a.Score.String(), DispatchedAt: now,
			}, "")
			if err == nil {
				_ = s.nats.Publish(ctx, messaging.SubjectDispatchDecision, ev)
			}
		}
	}

	return result, nil
}

// candidatesFor scores every free, constraint-satisfying equipment unit
// for lot, fanning the per-equipment score computation across a bounded
// errgroup pool since scoring is pure and embarrassingly parallel.
func (s *Scheduler) candidatesFor(ctx context.Context, lot *models.Lot, free map[uuid.UUID]*models.Equipment, depth map[uuid.UUID]int, now time.Time) []candidateScore {
	type job struct {
		eq *models.Equipment
	}
	jobs := make([]job, 0, len(free))
	for _, eq := range free {
		if !hardConstraintsPass(lot, eq, s.cfg, now) {
			continue
		}
		jobs = append(jobs, job{eq: eq})
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]candidateScore, len(jobs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxScoringWorkers)

	deadlineHours, hasDeadline := lot.DeadlineHours(now)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			results[i] = score(lot, j.eq, depth[j.eq.ID], deadlineHours, hasDeadline, s.cfg.SchedulerWeights)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// hardConstraintsPass checks constraints 1, 2, and 4
// Constraint 3 (no double-booking) is enforced by the caller removing
// equipment from the free set as soon as it's consumed. now must be the
// same clock reading the batch scored candidates against, never
// time.Now(), so a fixed clock.Fake reproduces identical deadline
// feasibility decisions across runs.
func hardConstraintsPass(lot *models.Lot, eq *models.Equipment, cfg config.Config, now time.Time) bool {
	if !eq.Available() {
		return false
	}
	if cfg.SchedulerEnforceRecipe && !models.AcceptsRecipe(eq.Kind, lot.RecipeKind) {
		return false
	}
	if cfg.SchedulerEnforceDeadlines && lot.Deadline != nil {
		deadlineHours := lot.Deadline.Sub(now).Hours()
		estimatedHours := float64(lot.EstimatedDurationMinutes) / 60
		if deadlineHours < estimatedHours {
			return false
		}
	}
	return true
}

func unassignedReason(lot *models.Lot, free map[uuid.UUID]*models.Equipment, enforceRecipe bool) string {
	if len(free) == 0 {
		return "no equipment available"
	}
	if enforceRecipe {
		for _, eq := range free {
			if models.AcceptsRecipe(eq.Kind, lot.RecipeKind) {
				return "outbid by a higher-scoring lot"
			}
		}
		return fmt.Sprintf("no equipment accepts recipe %q", lot.RecipeKind)
	}
	return "outbid by a higher-scoring lot"
}

// sortLots orders by the lexicographic rule: hot lots
// first, then priority ascending, then FIFO by created_at.
func sortLots(lots []*models.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if a.HotLot != b.HotLot {
			return a.HotLot
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func lotByID(lots []*models.Lot, id uuid.UUID) *models.Lot {
	for _, l := range lots {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// NextQueue returns the top n PENDING lots in priority order for
// GET /dispatch/queue, without mutating any lot.
func (s *Scheduler) NextQueue(ctx context.Context, n int) ([]priorityqueue.Item, error) {
	pendingStatus := models.LotPending
	lots, err := s.repo.ListLots(ctx, repository.LotFilter{Status: &pendingStatus})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("list pending lots: %w", err))
	}

	q := priorityqueue.NewLotQueue()
	for _, lot := range lots {
		q.Push(priorityqueue.Item{
			LotID:     lot.ID,
			HotLot:    lot.HotLot,
			Priority:  lot.Priority,
			CreatedAt: lot.CreatedAt,
		})
	}
	return q.Top(n), nil
}
