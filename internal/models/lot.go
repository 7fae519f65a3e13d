package models

import (
	"time"

	"github.com/google/uuid"
)

// Lot is a batch of wafers moving through the fab — the unit of scheduling.
type Lot struct {
	ID                       uuid.UUID
	Name                     string
	WaferCount               int
	Priority                 int
	HotLot                   bool
	RecipeKind               string
	Status                   LotStatus
	AssignedEquipmentID      *uuid.UUID
	CreatedAt                time.Time
	StartedAt                *time.Time
	CompletedAt              *time.Time
	Deadline                 *time.Time
	EstimatedDurationMinutes int
	CustomerTag              string
	UpdatedAt                time.Time
	// Version guards against a transition landing on a lot that has
	// already moved past the predecessor state the caller observed.
	Version int
}

// legalTransitions is the state graph
var legalTransitions = map[LotStatus]map[LotStatus]bool{
	LotPending: {LotQueued: true, LotCancelled: true},
	LotQueued:  {LotRunning: true, LotCancelled: true},
	LotRunning: {LotCompleted: true, LotFailed: true},
}

// CanTransition reports whether moving from `from` to `to` is a legal
// single edge in the lifecycle graph.
func CanTransition(from, to LotStatus) bool {
	targets, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// DeadlineHours returns hours remaining until deadline from `now`, or
// false if no deadline is set.
func (l *Lot) DeadlineHours(now time.Time) (float64, bool) {
	if l.Deadline == nil {
		return 0, false
	}
	return l.Deadline.Sub(now).Hours(), true
}
