package models

import (
	"time"

	"github.com/google/uuid"
)

// Incident is a classified anomaly detection surfaced through the safety
// circuit.
type Incident struct {
	ID             uuid.UUID
	EquipmentID    uuid.UUID
	Severity       Severity
	Kind           string
	Message        string
	DetectedValue  float64
	ThresholdValue float64
	Action         string
	ActionStatus   ActionStatus
	Zone           Zone
	ZScore         *float64
	RoC            *float64
	Resolved       bool
	ResolvedAt     *time.Time
	OperatorNotes  string
	CreatedAt      time.Time
}
