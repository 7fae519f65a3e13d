package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabcore/mescontrol/internal/models"
)

func TestGetLotNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetLot(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestUpdateLotRequiresExisting(t *testing.T) {
	m := NewMemory()
	err := m.UpdateLot(context.Background(), &models.Lot{ID: uuid.New()})
	assert.Error(t, err)
}

func TestCreateThenUpdateLotRoundTrips(t *testing.T) {
	m := NewMemory()
	lot := &models.Lot{ID: uuid.New(), Name: "LOT-A", Status: models.LotPending}
	require.NoError(t, m.CreateLot(context.Background(), lot))

	lot.Status = models.LotQueued
	require.NoError(t, m.UpdateLot(context.Background(), lot))

	got, err := m.GetLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotQueued, got.Status)
}

func TestListLotsFiltersByStatusPriorityAndHotOnly(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	pending := &models.Lot{ID: uuid.New(), Name: "A", Status: models.LotPending, Priority: 1, CreatedAt: now}
	queuedHot := &models.Lot{ID: uuid.New(), Name: "B", Status: models.LotQueued, Priority: 1, HotLot: true, CreatedAt: now.Add(time.Second)}
	require.NoError(t, m.CreateLot(context.Background(), pending))
	require.NoError(t, m.CreateLot(context.Background(), queuedHot))

	status := models.LotQueued
	out, err := m.ListLots(context.Background(), LotFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, queuedHot.ID, out[0].ID)

	hotOut, err := m.ListLots(context.Background(), LotFilter{HotOnly: true})
	require.NoError(t, err)
	require.Len(t, hotOut, 1)
	assert.Equal(t, queuedHot.ID, hotOut[0].ID)
}

func TestListLotsSortedByCreatedAt(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	later := &models.Lot{ID: uuid.New(), Name: "LATE", CreatedAt: now.Add(time.Hour)}
	earlier := &models.Lot{ID: uuid.New(), Name: "EARLY", CreatedAt: now}
	require.NoError(t, m.CreateLot(context.Background(), later))
	require.NoError(t, m.CreateLot(context.Background(), earlier))

	out, err := m.ListLots(context.Background(), LotFilter{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, earlier.ID, out[0].ID)
	assert.Equal(t, later.ID, out[1].ID)
}

func TestCountLotsByStatus(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotPending}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotQueued}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotRunning}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotCompleted}))

	counts, err := m.CountLotsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 1, counts.Queued)
	assert.Equal(t, 1, counts.Running)
	assert.Equal(t, 3, counts.Total())
}

func TestQueueDepthCountsQueuedAndRunningOnly(t *testing.T) {
	m := NewMemory()
	eqID := uuid.New()
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotQueued, AssignedEquipmentID: &eqID}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotRunning, AssignedEquipmentID: &eqID}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Status: models.LotCompleted, AssignedEquipmentID: &eqID}))

	depth, err := m.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, depth[eqID])
}

func TestWithTxCommitsAllWritesAtomically(t *testing.T) {
	m := NewMemory()
	lot := &models.Lot{ID: uuid.New(), Status: models.LotPending}
	eq := &models.Equipment{ID: uuid.New(), Status: models.EquipmentIdle}
	require.NoError(t, m.CreateLot(context.Background(), lot))
	require.NoError(t, m.CreateEquipment(context.Background(), eq))

	lot.Status = models.LotQueued
	eq.Status = models.EquipmentRunning
	err := m.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.UpdateLot(ctx, lot))
		require.NoError(t, tx.UpdateEquipment(ctx, eq))
		return tx.CreateDispatchRecord(ctx, &models.DispatchRecord{ID: uuid.New(), LotID: lot.ID, EquipmentID: eq.ID})
	})
	require.NoError(t, err)

	gotLot, _ := m.GetLot(context.Background(), lot.ID)
	gotEq, _ := m.GetEquipment(context.Background(), eq.ID)
	assert.Equal(t, models.LotQueued, gotLot.Status)
	assert.Equal(t, models.EquipmentRunning, gotEq.Status)

	records, err := m.ListDispatchRecords(context.Background(), DispatchFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLotNamesWithPrefixRespectsSinceAndPrefix(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Name: "AUTO-2026-1001", CreatedAt: now}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Name: "AUTO-2026-1002", CreatedAt: yesterday}))
	require.NoError(t, m.CreateLot(context.Background(), &models.Lot{ID: uuid.New(), Name: "HOT-AUTO-2026-1003", CreatedAt: now}))

	names, err := m.LotNamesWithPrefix(context.Background(), "AUTO-2026-", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"AUTO-2026-1001"}, names)
}

func TestListIncidentsFiltersAndSortsNewestFirst(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	older := &models.Incident{ID: uuid.New(), Severity: models.SeverityHigh, CreatedAt: now}
	newer := &models.Incident{ID: uuid.New(), Severity: models.SeverityCritical, CreatedAt: now.Add(time.Minute)}
	require.NoError(t, m.CreateIncident(context.Background(), older))
	require.NoError(t, m.CreateIncident(context.Background(), newer))

	out, err := m.ListIncidents(context.Background(), IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, newer.ID, out[0].ID)

	sev := models.SeverityCritical
	filtered, err := m.ListIncidents(context.Background(), IncidentFilter{Severity: &sev})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, newer.ID, filtered[0].ID)
}
