// Package telemetry generates or ingests SensorReadings, runs them
// through the anomaly detector and safety circuit, and fans the result
// out to the InfluxDB sink, the Repository, and the live operator feed.
package telemetry

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
	"github.com/fabcore/mescontrol/internal/rng"
	"github.com/fabcore/mescontrol/internal/safety"
)

// baseline is the steady-state mean per metric; samples are drawn as
// baseline plus centered noise, with an occasional wide excursion so the
// anomaly thresholds actually fire during a simulation run.
type baseline struct {
	temperature float64
	vibration   float64
	pressure    float64
	power       float64
}

var defaultBaseline = baseline{temperature: 45, vibration: 0.005, pressure: 1.0, power: 50}

// Simulator drives a synthetic telemetry stream across all equipment,
// exercising the same detect-then-route path real ingestion would.
type Simulator struct {
	repo     repository.Repository
	clk      clock.Clock
	rnd      *rng.Source
	detector *anomaly.Detector
	circuit  *safety.Circuit
	sink     *InfluxSink
	feed     *Feed
}

func NewSimulator(repo repository.Repository, clk clock.Clock, rnd *rng.Source, detector *anomaly.Detector, circuit *safety.Circuit, sink *InfluxSink, feed *Feed) *Simulator {
	return &Simulator{repo: repo, clk: clk, rnd: rnd, detector: detector, circuit: circuit, sink: sink, feed: feed}
}

// Tick samples one reading per equipment unit and routes it through
// detection, persistence, the time-series sink, and the live feed.
func (s *Simulator) Tick(ctx context.Context) error {
	equipment, err := s.repo.ListEquipment(ctx, repository.EquipmentFilter{})
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("telemetry: list equipment: %w", err))
	}

	now := s.clk.Now()
	for _, eq := range equipment {
		reading := s.sample(eq.ID, now)
		if err := s.Ingest(ctx, reading); err != nil {
			return err
		}
	}
	return nil
}

// Ingest routes a single reading (simulated or externally reported)
// through detection, persistence, and the live feed.
func (s *Simulator) Ingest(ctx context.Context, reading *models.SensorReading) error {
	tempDet := s.detector.Analyze(reading.EquipmentID, anomaly.MetricTemperature, reading.Temperature, reading.RecordedAt)
	vibDet := s.detector.Analyze(reading.EquipmentID, anomaly.MetricVibration, reading.Vibration, reading.RecordedAt)

	det := tempDet
	if det == nil {
		det = vibDet
	}
	if det != nil {
		reading.IsAnomaly = true
		z := det.ZScore
		reading.AnomalyScore = &z
	}

	if err := s.repo.CreateSensorReading(ctx, reading); err != nil {
		return apierr.Unavailable(fmt.Errorf("telemetry: create sensor reading: %w", err))
	}

	if s.sink != nil {
		_ = s.sink.Write(ctx, reading)
	}

	if s.feed != nil {
		s.feed.Broadcast(Update{Type: "sensor_reading", Data: reading, Timestamp: reading.RecordedAt})
	}

	if det != nil && s.circuit != nil {
		inc, err := s.circuit.Record(ctx, det)
		if err != nil {
			return err
		}
		if s.feed != nil {
			s.feed.Broadcast(Update{Type: "incident", Data: inc, Timestamp: reading.RecordedAt})
		}
	}
	return nil
}

// sample draws a synthetic reading centered on the baseline, with a
// small excursion probability so the anomaly thresholds occasionally
// fire during a simulation run.
func (s *Simulator) sample(equipmentID uuid.UUID, now time.Time) *models.SensorReading {
	b := defaultBaseline

	temp := b.temperature + s.rnd.Uniform(-3, 3)
	vib := b.vibration + s.rnd.Uniform(-0.002, 0.002)

	if s.rnd.Bernoulli(0.03) {
		temp += s.rnd.Uniform(20, 70)
	}
	if s.rnd.Bernoulli(0.03) {
		vib += s.rnd.Uniform(0.02, 0.08)
	}

	return &models.SensorReading{
		ID:          uuid.New(),
		EquipmentID: equipmentID,
		Temperature: temp,
		Vibration:   vib,
		Pressure:    b.pressure + s.rnd.Uniform(-0.05, 0.05),
		Power:       b.power + s.rnd.Uniform(-5, 5),
		RecordedAt:  now,
	}
}
