package models

import (
	"time"

	"github.com/google/uuid"
)

// SensorReading is one telemetry sample from an equipment unit.
type SensorReading struct {
	ID           uuid.UUID
	EquipmentID  uuid.UUID
	Temperature  float64
	Vibration    float64
	Pressure     float64
	Power        float64
	RecordedAt   time.Time
	IsAnomaly    bool
	AnomalyScore *float64
}
