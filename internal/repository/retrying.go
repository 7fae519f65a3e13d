package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/pkg/circuit"
)

// Retrying wraps a Repository so that every call classified as
// RepositoryUnavailable is attempted up to three times in total (two
// retries) with exponential backoff, the total sleep capped at one
// second, via pkg/circuit.Retry. Calls
// failing with any other error kind (validation, not-found, conflict)
// return immediately — those aren't transient, so retrying them would
// just burn the budget for no benefit.
type Retrying struct {
	inner       Repository
	maxAttempts int
	budget      time.Duration
}

func NewRetrying(inner Repository) *Retrying {
	return &Retrying{inner: inner, maxAttempts: 3, budget: time.Second}
}

func (r *Retrying) call(ctx context.Context, fn func() error) error {
	var finalErr error
	retryErr := circuit.Retry(ctx, r.maxAttempts, r.budget, func() error {
		err := fn()
		finalErr = err
		if err == nil {
			return nil
		}
		if apiErr, ok := apierr.As(err); ok && apiErr.Kind != apierr.KindUnavailable {
			return nil // not transient, stop retrying
		}
		return err
	})
	if retryErr != nil {
		return retryErr
	}
	return finalErr
}

func (r *Retrying) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.call(ctx, func() error { return r.inner.WithTx(ctx, fn) })
}

func (r *Retrying) GetEquipment(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.GetEquipment(ctx, id)
		return err
	})
	return out, err
}

func (r *Retrying) ListEquipment(ctx context.Context, filter EquipmentFilter) ([]*models.Equipment, error) {
	var out []*models.Equipment
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListEquipment(ctx, filter)
		return err
	})
	return out, err
}

func (r *Retrying) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	return r.call(ctx, func() error { return r.inner.CreateEquipment(ctx, eq) })
}

func (r *Retrying) UpdateEquipment(ctx context.Context, eq *models.Equipment) error {
	return r.call(ctx, func() error { return r.inner.UpdateEquipment(ctx, eq) })
}

func (r *Retrying) GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var out *models.Lot
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.GetLot(ctx, id)
		return err
	})
	return out, err
}

func (r *Retrying) ListLots(ctx context.Context, filter LotFilter) ([]*models.Lot, error) {
	var out []*models.Lot
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListLots(ctx, filter)
		return err
	})
	return out, err
}

func (r *Retrying) CreateLot(ctx context.Context, lot *models.Lot) error {
	return r.call(ctx, func() error { return r.inner.CreateLot(ctx, lot) })
}

func (r *Retrying) UpdateLot(ctx context.Context, lot *models.Lot) error {
	return r.call(ctx, func() error { return r.inner.UpdateLot(ctx, lot) })
}

func (r *Retrying) CountLotsByStatus(ctx context.Context) (LotCounts, error) {
	var out LotCounts
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.CountLotsByStatus(ctx)
		return err
	})
	return out, err
}

func (r *Retrying) LotNamesWithPrefix(ctx context.Context, prefix string, since time.Time) ([]string, error) {
	var out []string
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.LotNamesWithPrefix(ctx, prefix, since)
		return err
	})
	return out, err
}

func (r *Retrying) QueueDepth(ctx context.Context) (map[uuid.UUID]int, error) {
	var out map[uuid.UUID]int
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.QueueDepth(ctx)
		return err
	})
	return out, err
}

func (r *Retrying) CreateDispatchRecord(ctx context.Context, rec *models.DispatchRecord) error {
	return r.call(ctx, func() error { return r.inner.CreateDispatchRecord(ctx, rec) })
}

func (r *Retrying) ListDispatchRecords(ctx context.Context, filter DispatchFilter) ([]*models.DispatchRecord, error) {
	var out []*models.DispatchRecord
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListDispatchRecords(ctx, filter)
		return err
	})
	return out, err
}

func (r *Retrying) CreateSensorReading(ctx context.Context, sr *models.SensorReading) error {
	return r.call(ctx, func() error { return r.inner.CreateSensorReading(ctx, sr) })
}

func (r *Retrying) ListSensorReadings(ctx context.Context, filter SensorFilter) ([]*models.SensorReading, error) {
	var out []*models.SensorReading
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListSensorReadings(ctx, filter)
		return err
	})
	return out, err
}

func (r *Retrying) CreateIncident(ctx context.Context, inc *models.Incident) error {
	return r.call(ctx, func() error { return r.inner.CreateIncident(ctx, inc) })
}

func (r *Retrying) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var out *models.Incident
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.GetIncident(ctx, id)
		return err
	})
	return out, err
}

func (r *Retrying) ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, error) {
	var out []*models.Incident
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListIncidents(ctx, filter)
		return err
	})
	return out, err
}

func (r *Retrying) UpdateIncident(ctx context.Context, inc *models.Incident) error {
	return r.call(ctx, func() error { return r.inner.UpdateIncident(ctx, inc) })
}

func (r *Retrying) CreateAgent(ctx context.Context, a *models.Agent) error {
	return r.call(ctx, func() error { return r.inner.CreateAgent(ctx, a) })
}

func (r *Retrying) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var out *models.Agent
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.GetAgent(ctx, id)
		return err
	})
	return out, err
}

func (r *Retrying) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	var out []*models.Agent
	err := r.call(ctx, func() error {
		var err error
		out, err = r.inner.ListAgents(ctx)
		return err
	})
	return out, err
}

func (r *Retrying) UpdateAgent(ctx context.Context, a *models.Agent) error {
	return r.call(ctx, func() error { return r.inner.UpdateAgent(ctx, a) })
}
