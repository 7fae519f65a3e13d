package scheduler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/models"
)

// candidateScore is the per-(lot,equipment) evaluation defined as
// S = w_p*P + w_e*E + w_d*D + w_q*Q.
type candidateScore struct {
	equipment *models.Equipment
	score     decimal.Decimal
	reason    string
}

// score computes S(lot, eq) and a one-line human-readable reason naming
// the rule that fired.
func score(lot *models.Lot, eq *models.Equipment, queueDepth int, deadlineHours float64, hasDeadline bool, w config.SchedulerWeights) candidateScore {
	p := priorityFactor(lot)
	e := efficiencyFactor(eq)
	d := depthFactor(queueDepth)
	q := deadlineFactor(lot, deadlineHours, hasDeadline)

	s := decimal.NewFromFloat(w.Priority).Mul(decimal.NewFromFloat(p)).
		Add(decimal.NewFromFloat(w.Efficiency).Mul(decimal.NewFromFloat(e))).
		Add(decimal.NewFromFloat(w.Deadline).Mul(decimal.NewFromFloat(d))).
		Add(decimal.NewFromFloat(w.QueueDepth).Mul(decimal.NewFromFloat(q)))

	return candidateScore{
		equipment: eq,
		score:     s.Round(6),
		reason:    reasonFor(lot, eq, p),
	}
}

// priorityFactor returns P: hot lots always score 1, otherwise priority
// is mapped onto [0,1] with 1 being highest.
func priorityFactor(lot *models.Lot) float64 {
	if lot.HotLot {
		return 1
	}
	return 1 - float64(lot.Priority-1)/4
}

// efficiencyFactor returns E, with the +0.1 idle bonus
func efficiencyFactor(eq *models.Equipment) float64 {
	e := eq.Efficiency
	if eq.Status == models.EquipmentIdle {
		e += 0.1
	}
	if e > 1 {
		e = 1
	}
	return e
}

// depthFactor returns D, clamped to [0,1].
func depthFactor(queueDepth int) float64 {
	d := 1 - float64(queueDepth)/10
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// deadlineFactor returns Q
func deadlineFactor(lot *models.Lot, deadlineHours float64, hasDeadline bool) float64 {
	if !hasDeadline {
		return 1
	}
	estimatedHours := float64(lot.EstimatedDurationMinutes) / 60
	if deadlineHours >= estimatedHours {
		return 1
	}
	denom := estimatedHours
	if denom < 1 {
		denom = 1
	}
	q := deadlineHours / denom
	if q < 0 {
		return 0
	}
	return q
}

func reasonFor(lot *models.Lot, eq *models.Equipment, p float64) string {
	if lot.HotLot {
		return fmt.Sprintf("hot-lot bypass onto %s", eq.Name)
	}
	return fmt.Sprintf("priority %d, efficiency %.0f%% on %s", lot.Priority, eq.Efficiency*100, eq.Name)
}

// betterCandidate implements the tie-break order:
// higher score, then higher efficiency, then IDLE before RUNNING, then
// lower queue depth, then equipment id ascending.
func betterCandidate(a, b candidateScore, depthA, depthB int) bool {
	if !a.score.Equal(b.score) {
		return a.score.GreaterThan(b.score)
	}
	if a.equipment.Efficiency != b.equipment.Efficiency {
		return a.equipment.Efficiency > b.equipment.Efficiency
	}
	aIdle := a.equipment.Status == models.EquipmentIdle
	bIdle := b.equipment.Status == models.EquipmentIdle
	if aIdle != bIdle {
		return aIdle
	}
	if depthA != depthB {
		return depthA < depthB
	}
	return a.equipment.ID.String() < b.equipment.ID.String()
}
