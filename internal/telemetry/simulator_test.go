package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabcore/mescontrol/internal/anomaly"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
	"github.com/fabcore/mescontrol/internal/rng"
	"github.com/fabcore/mescontrol/internal/safety"
)

func newTestSimulator(repo repository.Repository, feed *Feed) *Simulator {
	det := anomaly.New(nil)
	circuit := safety.New(repo, clock.NewFake(time.Now()), nil)
	return NewSimulator(repo, clock.NewFake(time.Now()), rng.New(1), det, circuit, nil, feed)
}

func TestTickSamplesOneReadingPerEquipment(t *testing.T) {
	repo := repository.NewMemory()
	require.NoError(t, repo.CreateEquipment(context.Background(), &models.Equipment{ID: uuid.New(), Status: models.EquipmentIdle}))
	require.NoError(t, repo.CreateEquipment(context.Background(), &models.Equipment{ID: uuid.New(), Status: models.EquipmentIdle}))

	sim := newTestSimulator(repo, nil)
	require.NoError(t, sim.Tick(context.Background()))

	readings, err := repo.ListSensorReadings(context.Background(), repository.SensorFilter{})
	require.NoError(t, err)
	assert.Len(t, readings, 2)
}

func TestIngestPersistsReading(t *testing.T) {
	repo := repository.NewMemory()
	sim := newTestSimulator(repo, nil)

	eqID := uuid.New()
	reading := &models.SensorReading{ID: uuid.New(), EquipmentID: eqID, Temperature: 45, Vibration: 0.005, RecordedAt: time.Now()}
	require.NoError(t, sim.Ingest(context.Background(), reading))

	out, err := repo.ListSensorReadings(context.Background(), repository.SensorFilter{EquipmentID: eqID})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].IsAnomaly)
}

func TestIngestFlagsAnomalyAndRecordsIncident(t *testing.T) {
	repo := repository.NewMemory()
	sim := newTestSimulator(repo, nil)

	eqID := uuid.New()
	now := time.Now()
	for i := 0; i < 12; i++ {
		reading := &models.SensorReading{ID: uuid.New(), EquipmentID: eqID, Temperature: 45, RecordedAt: now.Add(time.Duration(i) * time.Second)}
		require.NoError(t, sim.Ingest(context.Background(), reading))
	}

	hot := &models.SensorReading{ID: uuid.New(), EquipmentID: eqID, Temperature: 110, RecordedAt: now.Add(13 * time.Second)}
	require.NoError(t, sim.Ingest(context.Background(), hot))
	assert.True(t, hot.IsAnomaly)
	require.NotNil(t, hot.AnomalyScore)

	incidents, err := repo.ListIncidents(context.Background(), repository.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, eqID, incidents[0].EquipmentID)
}

func TestIngestBroadcastsToFeed(t *testing.T) {
	repo := repository.NewMemory()
	feed := NewFeed()
	sub := feed.Subscribe()
	sim := newTestSimulator(repo, feed)

	reading := &models.SensorReading{ID: uuid.New(), EquipmentID: uuid.New(), Temperature: 45, RecordedAt: time.Now()}
	require.NoError(t, sim.Ingest(context.Background(), reading))

	select {
	case update := <-sub.Updates:
		assert.Equal(t, "sensor_reading", update.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed broadcast")
	}
}
