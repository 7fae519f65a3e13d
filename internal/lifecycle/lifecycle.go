// Package lifecycle advances the lot state machine. Transitions are
// version-guarded and transaction-wrapped: every mutation version-stamps
// the row and rejects writers racing on a stale version, guarding
// QUEUED->RUNNING and RUNNING->COMPLETED against a concurrent
// API-driven cancel or complete.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/pkg/messaging"
)

// Processor advances RUNNING/QUEUED lots each tick and reconciles
// in-flight lots on startup.
type Processor struct {
	repo  repository.Repository
	clock clock.Clock
	nats  *messaging.Client

	mu       sync.Mutex
	tracking map[uuid.UUID]time.Time // lot id -> original started_at, set by Reconcile
}

func New(repo repository.Repository, clk clock.Clock, nats *messaging.Client) *Processor {
	return &Processor{repo: repo, clock: clk, nats: nats, tracking: make(map[uuid.UUID]time.Time)}
}

// Reconcile scans RUNNING lots on startup. Lots already
// past their estimated completion are completed immediately; the rest
// are recorded with their original started_at so later completion uses
// wall clock time rather than process uptime.
func (p *Processor) Reconcile(ctx context.Context) error {
	running := models.LotRunning
	lots, err := p.repo.ListLots(ctx, repository.LotFilter{Status: &running})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("reconcile: list running lots: %w", err))
	}

	now := p.clock.Now()
	for _, lot := range lots {
		if lot.StartedAt == nil {
			continue
		}
		if elapsedMinutes(*lot.StartedAt, now) >= float64(lot.EstimatedDurationMinutes) {
			if err := p.complete(ctx, lot, now); err != nil {
				return err
			}
			continue
		}
		p.mu.Lock()
		p.tracking[lot.ID] = *lot.StartedAt
		p.mu.Unlock()
	}
	return nil
}

// Tick applies the start rule to eligible QUEUED lots and the completion
// rule to eligible RUNNING lots, once each, for the current instant.
func (p *Processor) Tick(ctx context.Context) error {
	now := p.clock.Now()

	queued := models.LotQueued
	queuedLots, err := p.repo.ListLots(ctx, repository.LotFilter{Status: &queued})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("tick: list queued lots: %w", err))
	}
	started := make(map[uuid.UUID]bool) // at most one lot per equipment started per tick
	for _, lot := range queuedLots {
		if lot.AssignedEquipmentID == nil {
			continue
		}
		if started[*lot.AssignedEquipmentID] {
			continue
		}
		eq, err := p.repo.GetEquipment(ctx, *lot.AssignedEquipmentID)
		if err != nil {
			continue
		}
		if eq.Status != models.EquipmentIdle {
			continue
		}
		if err := p.start(ctx, lot, eq, now); err != nil {
			return err
		}
		started[eq.ID] = true
	}

	running := models.LotRunning
	runningLots, err := p.repo.ListLots(ctx, repository.LotFilter{Status: &running})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("tick: list running lots: %w", err))
	}
	for _, lot := range runningLots {
		startedAt := lot.StartedAt
		p.mu.Lock()
		if tracked, ok := p.tracking[lot.ID]; ok {
			startedAt = &tracked
		}
		p.mu.Unlock()
		if startedAt == nil {
			continue
		}
		if elapsedMinutes(*startedAt, now) >= float64(lot.EstimatedDurationMinutes) {
			if err := p.complete(ctx, lot, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// start applies QUEUED -> RUNNING.
func (p *Processor) start(ctx context.Context, lot *models.Lot, eq *models.Equipment, now time.Time) error {
	if !models.CanTransition(lot.Status, models.LotRunning) {
		return nil
	}
	fromStatus := lot.Status

	lot.Status = models.LotRunning
	lot.StartedAt = &now
	lot.UpdatedAt = now
	eq.Status = models.EquipmentRunning
	eq.CurrentLotID = &lot.ID

	err := p.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return err
		}
		return tx.UpdateEquipment(ctx, eq)
	})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("start lot %s: %w", lot.ID, err))
	}

	p.mu.Lock()
	p.tracking[lot.ID] = now
	p.mu.Unlock()

	p.publishTransition(ctx, lot.ID, string(fromStatus), string(lot.Status), eq.ID, now)
	return nil
}

// complete applies RUNNING -> COMPLETED. Lots already
// moved off RUNNING by the API are not double-completed: CanTransition
// rejects the edge once status has changed.
func (p *Processor) complete(ctx context.Context, lot *models.Lot, now time.Time) error {
	if !models.CanTransition(lot.Status, models.LotCompleted) {
		return nil
	}
	fromStatus := lot.Status

	var eq *models.Equipment
	if lot.AssignedEquipmentID != nil {
		var err error
		eq, err = p.repo.GetEquipment(ctx, *lot.AssignedEquipmentID)
		if err != nil {
			return apierr.Unavailable(fmt.Errorf("complete lot %s: load equipment: %w", lot.ID, err))
		}
	}

	lot.Status = models.LotCompleted
	lot.CompletedAt = &now
	lot.UpdatedAt = now
	if eq != nil {
		eq.Status = models.EquipmentIdle
		eq.CurrentLotID = nil
		eq.TotalWafersProcessed += int64(lot.WaferCount)
	}

	err := p.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return err
		}
		if eq != nil {
			return tx.UpdateEquipment(ctx, eq)
		}
		return nil
	})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("complete lot %s: %w", lot.ID, err))
	}

	p.mu.Lock()
	delete(p.tracking, lot.ID)
	p.mu.Unlock()

	var eqID uuid.UUID
	if eq != nil {
		eqID = eq.ID
	}
	p.publishTransition(ctx, lot.ID, string(fromStatus), string(lot.Status), eqID, now)
	return nil
}

// ManualStart forces QUEUED -> RUNNING outside the regular tick, e.g. from
// an operator override endpoint. It enforces the same IDLE precondition and
// transactional lot+equipment write as the tick-driven path so a forced
// start can never double-book equipment already RUNNING under another lot.
func (p *Processor) ManualStart(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	lot, err := p.repo.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.AssignedEquipmentID == nil {
		return nil, apierr.ConflictMsg("job %s has no assigned machine", lotID)
	}
	eq, err := p.repo.GetEquipment(ctx, *lot.AssignedEquipmentID)
	if err != nil {
		return nil, err
	}
	if eq.Status != models.EquipmentIdle {
		return nil, apierr.ConflictMsg("machine %s is not idle", eq.ID)
	}
	if !models.CanTransition(lot.Status, models.LotRunning) {
		return nil, apierr.Conflict(string(lot.Status), string(models.LotRunning))
	}

	now := p.clock.Now()
	if err := p.start(ctx, lot, eq, now); err != nil {
		return nil, err
	}
	return lot, nil
}

// ManualComplete forces RUNNING -> COMPLETED outside the regular tick. It
// reuses the tick-driven complete path, so the lot and its equipment are
// updated in one transaction and an equipment write failure is surfaced
// instead of discarded.
func (p *Processor) ManualComplete(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	lot, err := p.repo.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(lot.Status, models.LotCompleted) {
		return nil, apierr.Conflict(string(lot.Status), string(models.LotCompleted))
	}

	now := p.clock.Now()
	if err := p.complete(ctx, lot, now); err != nil {
		return nil, err
	}
	return lot, nil
}

// Fail applies RUNNING -> FAILED, callable by the processor or by an
// agent reporting an equipment fault.
func (p *Processor) Fail(ctx context.Context, lotID uuid.UUID, reason string) (*models.Lot, error) {
	lot, err := p.repo.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(lot.Status, models.LotFailed) {
		return nil, apierr.Conflict(string(lot.Status), string(models.LotFailed))
	}
	fromStatus := lot.Status
	now := p.clock.Now()

	var eq *models.Equipment
	if lot.AssignedEquipmentID != nil {
		eq, err = p.repo.GetEquipment(ctx, *lot.AssignedEquipmentID)
		if err != nil {
			return nil, apierr.Unavailable(fmt.Errorf("fail lot %s: load equipment: %w", lotID, err))
		}
	}

	lot.Status = models.LotFailed
	lot.CompletedAt = &now
	lot.UpdatedAt = now
	if eq != nil {
		eq.Status = models.EquipmentIdle
		eq.CurrentLotID = nil
	}

	err = p.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return err
		}
		if eq != nil {
			return tx.UpdateEquipment(ctx, eq)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("fail lot %s: %w", lotID, err))
	}

	p.mu.Lock()
	delete(p.tracking, lot.ID)
	p.mu.Unlock()

	var eqID uuid.UUID
	if eq != nil {
		eqID = eq.ID
	}
	p.publishTransition(ctx, lot.ID, string(fromStatus), string(lot.Status), eqID, now)
	return lot, nil
}

// Cancel applies PENDING/QUEUED -> CANCELLED, an API-only edge.
func (p *Processor) Cancel(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	lot, err := p.repo.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(lot.Status, models.LotCancelled) {
		return nil, apierr.Conflict(string(lot.Status), string(models.LotCancelled))
	}
	fromStatus := lot.Status
	now := p.clock.Now()

	var eq *models.Equipment
	if lot.AssignedEquipmentID != nil {
		eq, err = p.repo.GetEquipment(ctx, *lot.AssignedEquipmentID)
		if err != nil {
			return nil, apierr.Unavailable(fmt.Errorf("cancel lot %s: load equipment: %w", lotID, err))
		}
	}

	lot.Status = models.LotCancelled
	lot.CompletedAt = &now
	lot.UpdatedAt = now
	if eq != nil && eq.CurrentLotID != nil && *eq.CurrentLotID == lot.ID {
		eq.Status = models.EquipmentIdle
		eq.CurrentLotID = nil
	}

	err = p.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return err
		}
		if eq != nil {
			return tx.UpdateEquipment(ctx, eq)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("cancel lot %s: %w", lotID, err))
	}

	p.mu.Lock()
	delete(p.tracking, lot.ID)
	p.mu.Unlock()

	var eqID uuid.UUID
	if eq != nil {
		eqID = eq.ID
	}
	p.publishTransition(ctx, lot.ID, string(fromStatus), string(lot.Status), eqID, now)
	return lot, nil
}

func (p *Processor) publishTransition(ctx context.Context, lotID uuid.UUID, from, to string, eqID uuid.UUID, now time.Time) {
	if p.nats == nil {
		return
	}
	ev, err := messaging.NewEnvelope(subjectFor(to), lotID, messaging.LotTransitionEvent{
		LotID: lotID, FromStatus: from, ToStatus: to, EquipmentID: eqID, At: now,
	}, "")
	if err != nil {
		return
	}
	_ = p.nats.Publish(ctx, subjectFor(to), ev)
}

func subjectFor(status string) string {
	switch models.LotStatus(status) {
	case models.LotQueued:
		return messaging.SubjectLotQueued
	case models.LotRunning:
		return messaging.SubjectLotStarted
	case models.LotCompleted:
		return messaging.SubjectLotCompleted
	case models.LotFailed:
		return messaging.SubjectLotFailed
	case models.LotCancelled:
		return messaging.SubjectLotCancelled
	default:
		return messaging.SubjectLotQueued
	}
}

func elapsedMinutes(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}
