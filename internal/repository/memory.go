package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/models"
)

// Memory is an in-memory Repository, useful as a test double and as the
// backing store for the simulator, where determinism matters more than
// durability.
type Memory struct {
	mu sync.Mutex

	equipment map[uuid.UUID]*models.Equipment
	lots      map[uuid.UUID]*models.Lot
	dispatch  []*models.DispatchRecord
	sensors   []*models.SensorReading
	incidents map[uuid.UUID]*models.Incident
	agents    map[uuid.UUID]*models.Agent
}

func NewMemory() *Memory {
	return &Memory{
		equipment: make(map[uuid.UUID]*models.Equipment),
		lots:      make(map[uuid.UUID]*models.Lot),
		incidents: make(map[uuid.UUID]*models.Incident),
		agents:    make(map[uuid.UUID]*models.Agent),
	}
}

// memTx implements Tx directly against the Memory maps while the
// caller's mutex is held, so WithTx's single critical section gives an
// all-or-nothing guarantee without a real database transaction.
type memTx struct {
	m *Memory
}

func (t *memTx) UpdateLot(_ context.Context, lot *models.Lot) error {
	cp := *lot
	t.m.lots[lot.ID] = &cp
	return nil
}

func (t *memTx) UpdateEquipment(_ context.Context, eq *models.Equipment) error {
	cp := *eq
	t.m.equipment[eq.ID] = &cp
	return nil
}

func (t *memTx) CreateDispatchRecord(_ context.Context, rec *models.DispatchRecord) error {
	cp := *rec
	t.m.dispatch = append(t.m.dispatch, &cp)
	return nil
}

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// snapshot for rollback on error: a failed batch must leave no
	// partial writes behind.
	lotsBackup := cloneLots(m.lots)
	eqBackup := cloneEquipment(m.equipment)
	dispatchLen := len(m.dispatch)

	if err := fn(ctx, &memTx{m: m}); err != nil {
		m.lots = lotsBackup
		m.equipment = eqBackup
		m.dispatch = m.dispatch[:dispatchLen]
		return err
	}
	return nil
}

func cloneLots(in map[uuid.UUID]*models.Lot) map[uuid.UUID]*models.Lot {
	out := make(map[uuid.UUID]*models.Lot, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneEquipment(in map[uuid.UUID]*models.Equipment) map[uuid.UUID]*models.Equipment {
	out := make(map[uuid.UUID]*models.Equipment, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}

// Equipment

func (m *Memory) GetEquipment(_ context.Context, id uuid.UUID) (*models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq, ok := m.equipment[id]
	if !ok {
		return nil, apierr.NotFound("equipment %s not found", id)
	}
	cp := *eq
	return &cp, nil
}

func (m *Memory) ListEquipment(_ context.Context, filter EquipmentFilter) ([]*models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Equipment, 0, len(m.equipment))
	for _, eq := range m.equipment {
		if filter.Status != nil && eq.Status != *filter.Status {
			continue
		}
		if filter.Zone != nil && eq.Zone != *filter.Zone {
			continue
		}
		cp := *eq
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateEquipment(_ context.Context, eq *models.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *eq
	m.equipment[eq.ID] = &cp
	return nil
}

func (m *Memory) UpdateEquipment(_ context.Context, eq *models.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.equipment[eq.ID]; !ok {
		return apierr.NotFound("equipment %s not found", eq.ID)
	}
	cp := *eq
	m.equipment[eq.ID] = &cp
	return nil
}

// Lots

func (m *Memory) GetLot(_ context.Context, id uuid.UUID) (*models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return nil, apierr.NotFound("lot %s not found", id)
	}
	cp := *lot
	return &cp, nil
}

func (m *Memory) ListLots(_ context.Context, filter LotFilter) ([]*models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Lot, 0, len(m.lots))
	for _, lot := range m.lots {
		if filter.Status != nil && lot.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && lot.Priority != *filter.Priority {
			continue
		}
		if filter.HotOnly && !lot.HotLot {
			continue
		}
		cp := *lot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateLot(_ context.Context, lot *models.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *lot
	m.lots[lot.ID] = &cp
	return nil
}

func (m *Memory) UpdateLot(_ context.Context, lot *models.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lots[lot.ID]; !ok {
		return apierr.NotFound("lot %s not found", lot.ID)
	}
	cp := *lot
	m.lots[lot.ID] = &cp
	return nil
}

func (m *Memory) CountLotsByStatus(_ context.Context) (LotCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c LotCounts
	for _, lot := range m.lots {
		switch lot.Status {
		case models.LotPending:
			c.Pending++
		case models.LotQueued:
			c.Queued++
		case models.LotRunning:
			c.Running++
		}
	}
	return c, nil
}

func (m *Memory) LotNamesWithPrefix(_ context.Context, prefix string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, lot := range m.lots {
		if lot.CreatedAt.Before(since) {
			continue
		}
		if len(lot.Name) >= len(prefix) && lot.Name[:len(prefix)] == prefix {
			out = append(out, lot.Name)
		}
	}
	return out, nil
}

func (m *Memory) QueueDepth(_ context.Context) (map[uuid.UUID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	depth := make(map[uuid.UUID]int)
	for _, lot := range m.lots {
		if lot.AssignedEquipmentID == nil {
			continue
		}
		if lot.Status == models.LotQueued || lot.Status == models.LotRunning {
			depth[*lot.AssignedEquipmentID]++
		}
	}
	return depth, nil
}

// Dispatch records

func (m *Memory) CreateDispatchRecord(_ context.Context, rec *models.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.dispatch = append(m.dispatch, &cp)
	return nil
}

func (m *Memory) ListDispatchRecords(_ context.Context, filter DispatchFilter) ([]*models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.DispatchRecord, len(m.dispatch))
	copy(out, m.dispatch)
	sort.Slice(out, func(i, j int) bool { return out[i].DispatchedAt.After(out[j].DispatchedAt) })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Sensor readings

func (m *Memory) CreateSensorReading(_ context.Context, r *models.SensorReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.sensors = append(m.sensors, &cp)
	return nil
}

func (m *Memory) ListSensorReadings(_ context.Context, filter SensorFilter) ([]*models.SensorReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.SensorReading, 0)
	for _, r := range m.sensors {
		if r.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.Since != nil && r.RecordedAt.Before(*filter.Since) {
			continue
		}
		if filter.AnomaliesOnly && !r.IsAnomaly {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Incidents

func (m *Memory) CreateIncident(_ context.Context, inc *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inc
	m.incidents[inc.ID] = &cp
	return nil
}

func (m *Memory) GetIncident(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, apierr.NotFound("incident %s not found", id)
	}
	cp := *inc
	return &cp, nil
}

func (m *Memory) ListIncidents(_ context.Context, filter IncidentFilter) ([]*models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Incident, 0, len(m.incidents))
	for _, inc := range m.incidents {
		if filter.Severity != nil && inc.Severity != *filter.Severity {
			continue
		}
		if filter.EquipmentID != nil && inc.EquipmentID != *filter.EquipmentID {
			continue
		}
		if filter.Resolved != nil && inc.Resolved != *filter.Resolved {
			continue
		}
		if filter.Since != nil && inc.CreatedAt.Before(*filter.Since) {
			continue
		}
		cp := *inc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateIncident(_ context.Context, inc *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[inc.ID]; !ok {
		return apierr.NotFound("incident %s not found", inc.ID)
	}
	cp := *inc
	m.incidents[inc.ID] = &cp
	return nil
}

// Agents

func (m *Memory) CreateAgent(_ context.Context, a *models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *Memory) GetAgent(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, apierr.NotFound("agent %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAgents(_ context.Context) ([]*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateAgent(_ context.Context, a *models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.ID]; !ok {
		return apierr.NotFound("agent %s not found", a.ID)
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}
