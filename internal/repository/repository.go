// Package repository defines the transactional data-access surface
// every engine depends on. Lot and equipment writes,
// scheduler batches, and lifecycle transitions all go through Repository
// so that they can be wrapped in a single sql.Tx.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/models"
)

// LotFilter narrows a lot listing query.
type LotFilter struct {
	Status     *models.LotStatus
	Priority   *int
	HotOnly    bool
}

// EquipmentFilter narrows an equipment listing query.
type EquipmentFilter struct {
	Status *models.EquipmentStatus
	Zone   *string
}

// IncidentFilter narrows an incident listing query.
type IncidentFilter struct {
	Severity    *models.Severity
	EquipmentID *uuid.UUID
	Resolved    *bool
	Since       *time.Time
}

// SensorFilter narrows a sensor reading listing query.
type SensorFilter struct {
	EquipmentID   uuid.UUID
	Since         *time.Time
	AnomaliesOnly bool
	Limit         int
}

// DispatchFilter narrows a dispatch record listing query.
type DispatchFilter struct {
	Limit int
}

// LotCounts is the backlog snapshot the Generator reads each tick.
type LotCounts struct {
	Pending   int
	Queued    int
	Running   int
}

func (c LotCounts) Total() int { return c.Pending + c.Queued + c.Running }

// Tx is a single transactional unit of work. Every scheduler batch and
// every lifecycle transition runs its writes inside one Tx so that either
// all of them commit or none do.
type Tx interface {
	// UpdateLot persists a full lot row as part of the transaction.
	UpdateLot(ctx context.Context, lot *models.Lot) error
	// UpdateEquipment persists a full equipment row as part of the
	// transaction.
	UpdateEquipment(ctx context.Context, eq *models.Equipment) error
	// CreateDispatchRecord appends an immutable dispatch record.
	CreateDispatchRecord(ctx context.Context, rec *models.DispatchRecord) error
}

// Repository is the single source of truth for every tracked entity.
// Implementations must serialize writes to the same lot/equipment id.
type Repository interface {
	// WithTx runs fn inside a single transaction; if fn returns an
	// error the transaction is rolled back and that error is returned
	// unwrapped so callers can classify it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Equipment
	GetEquipment(ctx context.Context, id uuid.UUID) (*models.Equipment, error)
	ListEquipment(ctx context.Context, filter EquipmentFilter) ([]*models.Equipment, error)
	CreateEquipment(ctx context.Context, eq *models.Equipment) error
	UpdateEquipment(ctx context.Context, eq *models.Equipment) error

	// Lots
	GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	ListLots(ctx context.Context, filter LotFilter) ([]*models.Lot, error)
	CreateLot(ctx context.Context, lot *models.Lot) error
	UpdateLot(ctx context.Context, lot *models.Lot) error
	CountLotsByStatus(ctx context.Context) (LotCounts, error)
	// LotNamesWithPrefix returns autogenerated names created today
	// sharing the given prefix, used to compute the next sequence
	// number for the Generator.
	LotNamesWithPrefix(ctx context.Context, prefix string, since time.Time) ([]string, error)
	// QueueDepth returns, for each equipment id, the count of lots
	// RUNNING on it plus those assigned-and-waiting.
	QueueDepth(ctx context.Context) (map[uuid.UUID]int, error)

	// Dispatch records
	CreateDispatchRecord(ctx context.Context, rec *models.DispatchRecord) error
	ListDispatchRecords(ctx context.Context, filter DispatchFilter) ([]*models.DispatchRecord, error)

	// Sensor readings
	CreateSensorReading(ctx context.Context, r *models.SensorReading) error
	ListSensorReadings(ctx context.Context, filter SensorFilter) ([]*models.SensorReading, error)

	// Incidents
	CreateIncident(ctx context.Context, inc *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, inc *models.Incident) error

	// Agents
	CreateAgent(ctx context.Context, a *models.Agent) error
	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListAgents(ctx context.Context) ([]*models.Agent, error)
	UpdateAgent(ctx context.Context, a *models.Agent) error
}
