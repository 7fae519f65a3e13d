// Package safety implements the three-tier safety circuit: mapping a
// detection's severity to a zone and autonomy disposition, then
// persisting and later approving/resolving the resulting incident. The
// approval/resolution bookkeeping keeps a per-equipment incident history
// and flips an action_status field under the Repository rather than an
// in-process list.
package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/anomaly"
	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/pkg/decimal"
	"github.com/fabcore/mescontrol/pkg/messaging"
)

// Circuit classifies detections into zones and persists incidents.
type Circuit struct {
	repo  repository.Repository
	clock clock.Clock
	nats  *messaging.Client
}

func New(repo repository.Repository, clk clock.Clock, nats *messaging.Client) *Circuit {
	return &Circuit{repo: repo, clock: clk, nats: nats}
}

// ZoneFor maps a severity to a zone: critical->red, high->yellow, else
// green.
func ZoneFor(severity models.Severity) models.Zone {
	switch severity {
	case models.SeverityCritical:
		return models.ZoneRed
	case models.SeverityHigh:
		return models.ZoneYellow
	default:
		return models.ZoneGreen
	}
}

// ActionStatusFor maps a zone to the autonomy disposition of its
// recommended action.
func ActionStatusFor(zone models.Zone) models.ActionStatus {
	switch zone {
	case models.ZoneGreen:
		return models.ActionAutoExecuted
	case models.ZoneYellow:
		return models.ActionPendingApproval
	default: // red
		return models.ActionAlertOnly
	}
}

// Record persists an incident for det, rounding z_score and roc to 2
// decimals.
func (c *Circuit) Record(ctx context.Context, det *anomaly.Detection) (*models.Incident, error) {
	now := c.clock.Now()
	severity := models.Severity(det.Severity)
	zone := ZoneFor(severity)
	actionStatus := ActionStatusFor(zone)

	z := round2(det.ZScore)
	roc := round2(det.RoCPerMinute)

	inc := &models.Incident{
		ID:             uuid.New(),
		EquipmentID:    det.EquipmentID,
		Severity:       severity,
		Kind:           det.Kind,
		Message:        fmt.Sprintf("%s on equipment %s: %.2f (threshold %.2f)", det.Kind, det.EquipmentID, det.Value, det.ThresholdValue),
		DetectedValue:  det.Value,
		ThresholdValue: det.ThresholdValue,
		Action:         det.Action,
		ActionStatus:   actionStatus,
		Zone:           zone,
		ZScore:         &z,
		RoC:            &roc,
		Resolved:       false,
		CreatedAt:      now,
	}

	if err := c.repo.CreateIncident(ctx, inc); err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("safety: create incident: %w", err))
	}

	c.publish(ctx, messaging.SubjectIncidentCreated, inc, now)
	return inc, nil
}

// Approve sets a pending_approval incident's action_status to approved.
func (c *Circuit) Approve(ctx context.Context, id uuid.UUID, operatorNotes string) (*models.Incident, error) {
	return c.resolveAction(ctx, id, models.ActionApproved, operatorNotes, messaging.SubjectIncidentApproved)
}

// Reject sets a pending_approval incident's action_status to rejected.
func (c *Circuit) Reject(ctx context.Context, id uuid.UUID, operatorNotes string) (*models.Incident, error) {
	return c.resolveAction(ctx, id, models.ActionRejected, operatorNotes, messaging.SubjectIncidentRejected)
}

func (c *Circuit) resolveAction(ctx context.Context, id uuid.UUID, status models.ActionStatus, notes string, subject string) (*models.Incident, error) {
	inc, err := c.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.ActionStatus != models.ActionPendingApproval {
		return nil, apierr.ConflictMsg("incident %s is not pending approval", id)
	}
	inc.ActionStatus = status
	inc.OperatorNotes = notes

	if err := c.repo.UpdateIncident(ctx, inc); err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("safety: update incident: %w", err))
	}
	c.publish(ctx, subject, inc, c.clock.Now())
	return inc, nil
}

// Resolve marks an incident resolved regardless of its current
// action_status.
func (c *Circuit) Resolve(ctx context.Context, id uuid.UUID, operatorNotes string) (*models.Incident, error) {
	inc, err := c.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.Resolved {
		return inc, nil
	}
	now := c.clock.Now()
	inc.Resolved = true
	inc.ResolvedAt = &now
	if operatorNotes != "" {
		inc.OperatorNotes = operatorNotes
	}
	if err := c.repo.UpdateIncident(ctx, inc); err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("safety: resolve incident: %w", err))
	}
	c.publish(ctx, messaging.SubjectIncidentResolved, inc, now)
	return inc, nil
}

func (c *Circuit) publish(ctx context.Context, subject string, inc *models.Incident, at time.Time) {
	if c.nats == nil {
		return
	}
	ev, err := messaging.NewEnvelope(subject, inc.ID, messaging.IncidentEvent{
		IncidentID: inc.ID, EquipmentID: inc.EquipmentID, Severity: string(inc.Severity),
		Kind: inc.Kind, Zone: string(inc.Zone), ActionStatus: string(inc.ActionStatus), At: at,
	}, "")
	if err != nil {
		return
	}
	_ = c.nats.Publish(ctx, subject, ev)
}

// round2 rounds a detection metric to 2 decimal places using the
// control plane's fixed-point type, the same one the Scheduler uses for
// scores, so every persisted numeric field in the system goes through
// one deterministic rounding path instead of float64's.
func round2(v float64) float64 {
	return decimal.NewFixedFromFloat(v).Round(2).Float64()
}
