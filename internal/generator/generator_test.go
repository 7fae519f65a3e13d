package generator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/config"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/rng"
)

func testCfg() config.GeneratorConfig {
	cfg := config.DefaultGeneratorConfig()
	cfg.MinLots = 5
	cfg.MaxLots = 20
	cfg.BatchSize = 3
	return cfg
}

func TestTickSkipsWhenBacklogAtOrAboveMin(t *testing.T) {
	repo := repository.NewMemory()
	for i := 0; i < 5; i++ {
		seedPendingLot(t, repo)
	}

	g := New(repo, clock.NewReal(), rng.New(1), testCfg())
	lots, err := g.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, lots)
}

func TestTickToppsUpBelowMin(t *testing.T) {
	repo := repository.NewMemory()
	seedPendingLot(t, repo)

	g := New(repo, clock.NewReal(), rng.New(1), testCfg())
	lots, err := g.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, lots, 3)

	counts, err := repo.CountLotsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Pending)
}

func TestGenerateCapsBatchAtMaxLots(t *testing.T) {
	repo := repository.NewMemory()
	for i := 0; i < 19; i++ {
		seedPendingLot(t, repo)
	}

	cfg := testCfg()
	cfg.MinLots = 20
	g := New(repo, clock.NewReal(), rng.New(1), cfg)

	lots, err := g.GenerateManual(context.Background())
	require.NoError(t, err)
	assert.Len(t, lots, 1)
}

func TestGenerateDisabledProducesNothing(t *testing.T) {
	repo := repository.NewMemory()
	cfg := testCfg()
	cfg.Enabled = false
	g := New(repo, clock.NewReal(), rng.New(1), cfg)

	lots, err := g.GenerateManual(context.Background())
	require.NoError(t, err)
	assert.Nil(t, lots)
}

func TestGenerateAssignsSequentialNamesStartingAt1001(t *testing.T) {
	repo := repository.NewMemory()
	g := New(repo, clock.NewFake(time.Now()), rng.New(7), testCfg())

	lots, err := g.GenerateManual(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, lots)

	seen := map[string]bool{}
	for i, lot := range lots {
		assert.False(t, seen[lot.Name], "duplicate generated name %s", lot.Name)
		seen[lot.Name] = true
		assert.True(t, strings.HasSuffix(lot.Name, fmt.Sprintf("-%d", 1001+i)), "name %s", lot.Name)
	}
}

func TestGenerateRecordsProvenance(t *testing.T) {
	repo := repository.NewMemory()
	g := New(repo, clock.NewReal(), rng.New(1), testCfg())

	lots, err := g.GenerateManual(context.Background())
	require.NoError(t, err)

	prov := g.Provenance()
	require.Len(t, prov, len(lots))
	for _, p := range prov {
		assert.Equal(t, "manual", p.Trigger)
	}
}

func TestWeightedCustomerIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	weights := map[string]float64{
		"ACME": 3, "GLOBEX": 2, "INITECH": 2, "UMBRELLA": 1, "SOYLENT": 1,
	}

	first := weightedCustomer(rng.New(99), weights)
	for i := 0; i < 50; i++ {
		got := weightedCustomer(rng.New(99), weights)
		assert.Equal(t, first, got, "same seed and weights must always pick the same customer tag")
	}
}

func TestWeightedCustomerNeverPicksAZeroWeightEntry(t *testing.T) {
	weights := map[string]float64{"ACME": 0, "GLOBEX": 0, "INITECH": 5}
	r := rng.New(3)
	for i := 0; i < 50; i++ {
		assert.Equal(t, "INITECH", weightedCustomer(r, weights))
	}
}

func TestWeightedCustomerEmptyWeightsReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", weightedCustomer(rng.New(1), nil))
}

func seedPendingLot(t *testing.T, repo *repository.Memory) {
	t.Helper()
	_, err := repo.CountLotsByStatus(context.Background())
	require.NoError(t, err)
	g := New(repo, clock.NewReal(), rng.New(1), config.GeneratorConfig{
		Enabled: true, MinLots: 1000, MaxLots: 1000, BatchSize: 1,
		HotLotProb: 0, PriorityWeights: [5]float64{1, 0, 0, 0, 0},
		RecipeAlphabet: []string{"etch"},
	})
	_, err = g.GenerateManual(context.Background())
	require.NoError(t, err)
}
