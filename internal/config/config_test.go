package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeightsRejectsNegative(t *testing.T) {
	_, err := NormalizeWeights(SchedulerWeights{Priority: -0.1, Efficiency: 0.3, Deadline: 0.2, QueueDepth: 0.2})
	assert.Error(t, err)
}

func TestNormalizeWeightsRescalesToSumOne(t *testing.T) {
	w, err := NormalizeWeights(SchedulerWeights{Priority: 1, Efficiency: 1, Deadline: 1, QueueDepth: 1})
	require.NoError(t, err)

	total := w.Priority + w.Efficiency + w.Deadline + w.QueueDepth
	assert.InDelta(t, 1.0, total, 0.0001)
	assert.InDelta(t, 0.25, w.Priority, 0.0001)
}

func TestNormalizeWeightsFallsBackOnZeroSum(t *testing.T) {
	w, err := NormalizeWeights(SchedulerWeights{})
	require.NoError(t, err)
	assert.Equal(t, SchedulerWeights{Priority: 0.3, Efficiency: 0.3, Deadline: 0.2, QueueDepth: 0.2}, w)
}

func TestNormalizeWeightsPreservesRelativeProportions(t *testing.T) {
	w, err := NormalizeWeights(SchedulerWeights{Priority: 2, Efficiency: 2, Deadline: 0, QueueDepth: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.Priority, 0.0001)
	assert.InDelta(t, 0.5, w.Efficiency, 0.0001)
	assert.InDelta(t, 0.0, w.Deadline, 0.0001)
}

func TestLoadAppliesDefaultsWithNoEnvironment(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 20, cfg.Generator.MinLots)
	assert.Equal(t, 500, cfg.Generator.MaxLots)
	assert.InDelta(t, 0.3, cfg.SchedulerWeights.Priority, 0.0001)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoadReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATOR_MIN_LOTS", "7")
	t.Setenv("GENERATOR_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COORDINATION_ETCD_ENDPOINTS", "etcd-0:2379,etcd-1:2379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 7, cfg.Generator.MinLots)
	assert.False(t, cfg.Generator.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, cfg.EtcdEndpoints)
}

func TestLoadRejectsNegativeSchedulerWeight(t *testing.T) {
	t.Setenv("SCHEDULER_WEIGHT_PRIORITY", "-1")
	_, err := Load()
	assert.Error(t, err)
}
