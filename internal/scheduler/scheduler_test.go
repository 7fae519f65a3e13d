package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		SchedulerWeights:        config.SchedulerWeights{Priority: 0.4, Efficiency: 0.3, Deadline: 0.2, QueueDepth: 0.1},
		SchedulerMaxAssignments: 10,
		SchedulerEnforceRecipe:  true,
		SchedulerBudget:         time.Second,
	}
}

func seedLot(t *testing.T, repo *repository.Memory, priority int, hot bool, recipe string, createdAt time.Time) *models.Lot {
	t.Helper()
	lot := &models.Lot{
		ID:                       uuid.New(),
		Name:                     "LOT-" + uuid.NewString()[:8],
		WaferCount:               25,
		Priority:                 priority,
		HotLot:                   hot,
		RecipeKind:               recipe,
		Status:                   models.LotPending,
		EstimatedDurationMinutes: 60,
		CreatedAt:                createdAt,
		UpdatedAt:                createdAt,
	}
	require.NoError(t, repo.CreateLot(context.Background(), lot))
	return lot
}

func seedEquipment(t *testing.T, repo *repository.Memory, kind models.EquipmentKind, status models.EquipmentStatus, efficiency float64) *models.Equipment {
	t.Helper()
	eq := &models.Equipment{
		ID:         uuid.New(),
		Name:       "EQ-" + uuid.NewString()[:8],
		Kind:       kind,
		Status:     status,
		Efficiency: efficiency,
	}
	require.NoError(t, repo.CreateEquipment(context.Background(), eq))
	return eq
}

func TestRunBatchAssignsHighestScoringCandidate(t *testing.T) {
	repo := repository.NewMemory()
	now := time.Now()

	lot := seedLot(t, repo, 1, false, "etch", now)
	seedEquipment(t, repo, models.KindEtching, models.EquipmentRunning, 0.5)
	strong := seedEquipment(t, repo, models.KindEtching, models.EquipmentIdle, 0.95)

	s := New(repo, clock.NewFake(now), testConfig(), nil)
	result, err := s.RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, lot.ID, result.Assignments[0].LotID)
	assert.Equal(t, strong.ID, result.Assignments[0].EquipmentID)
	assert.Equal(t, 0, len(result.Unassigned))
}

func TestRunBatchEnforcesRecipeConstraint(t *testing.T) {
	repo := repository.NewMemory()
	now := time.Now()

	lot := seedLot(t, repo, 1, false, "lithography", now)
	seedEquipment(t, repo, models.KindEtching, models.EquipmentIdle, 0.9)

	s := New(repo, clock.NewFake(now), testConfig(), nil)
	result, err := s.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, lot.ID, result.Unassigned[0].LotID)
}

func TestRunBatchOrdersHotLotsFirstUnderMaxAssignments(t *testing.T) {
	repo := repository.NewMemory()
	now := time.Now()

	seedLot(t, repo, 1, false, "etch", now)
	hot := seedLot(t, repo, 5, true, "etch", now.Add(time.Minute))
	seedEquipment(t, repo, models.KindEtching, models.EquipmentIdle, 0.9)

	cfg := testConfig()
	cfg.SchedulerMaxAssignments = 1
	s := New(repo, clock.NewFake(now), cfg, nil)

	result, err := s.RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, hot.ID, result.Assignments[0].LotID)
}

func TestRunBatchEvaluatesDeadlineFeasibilityAgainstInjectedClockNotWallClock(t *testing.T) {
	repo := repository.NewMemory()
	// A clock far from wall-clock time: if hardConstraintsPass ever uses
	// time.Now() instead of this fake, deadlineHours comes out wildly
	// negative against a deadline set relative to fakeNow and the lot
	// would wrongly go unassigned.
	fakeNow := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	lot := seedLot(t, repo, 1, false, "etch", fakeNow)
	deadline := fakeNow.Add(2 * time.Hour)
	lot.Deadline = &deadline
	require.NoError(t, repo.UpdateLot(context.Background(), lot))

	seedEquipment(t, repo, models.KindEtching, models.EquipmentIdle, 0.9)

	cfg := testConfig()
	cfg.SchedulerEnforceDeadlines = true
	s := New(repo, clock.NewFake(fakeNow), cfg, nil)

	result, err := s.RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1, "deadline feasibility must be judged against the injected clock, not time.Now()")
	assert.Equal(t, lot.ID, result.Assignments[0].LotID)
}

func TestNextQueueDoesNotMutateLots(t *testing.T) {
	repo := repository.NewMemory()
	now := time.Now()
	seedLot(t, repo, 2, false, "etch", now)
	seedLot(t, repo, 1, true, "etch", now.Add(time.Minute))

	s := New(repo, clock.NewFake(now), testConfig(), nil)
	items, err := s.NextQueue(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].HotLot)

	lots, err := repo.ListLots(context.Background(), repository.LotFilter{})
	require.NoError(t, err)
	for _, l := range lots {
		assert.Equal(t, models.LotPending, l.Status)
	}
}
