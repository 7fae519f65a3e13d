package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event subjects published by the control plane's engines.
const (
	SubjectDispatchDecision = "dispatch.decision"
	SubjectLotQueued        = "lot.queued"
	SubjectLotStarted       = "lot.started"
	SubjectLotCompleted     = "lot.completed"
	SubjectLotFailed        = "lot.failed"
	SubjectLotCancelled     = "lot.cancelled"

	SubjectEquipmentStatusChanged = "equipment.status_changed"

	SubjectIncidentCreated  = "incident.created"
	SubjectIncidentApproved = "incident.approved"
	SubjectIncidentRejected = "incident.rejected"
	SubjectIncidentResolved = "incident.resolved"

	SubjectAgentRegistered = "agent.registered"
	SubjectAgentHeartbeat  = "agent.heartbeat"
)

// Envelope is the common shape for every published event.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// DispatchDecisionEvent mirrors one DispatchRecord.
type DispatchDecisionEvent struct {
	LotID        uuid.UUID `json:"lot_id"`
	EquipmentID  uuid.UUID `json:"equipment_id"`
	Reason       string    `json:"reason"`
	Score        string    `json:"score"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// LotTransitionEvent reports a lifecycle state change.
type LotTransitionEvent struct {
	LotID       uuid.UUID `json:"lot_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	EquipmentID uuid.UUID `json:"equipment_id,omitempty"`
	At          time.Time `json:"at"`
}

// EquipmentStatusEvent reports an equipment state change.
type EquipmentStatusEvent struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	At          time.Time `json:"at"`
}

// IncidentEvent mirrors the fields needed downstream without shipping
// the full Incident record.
type IncidentEvent struct {
	IncidentID   uuid.UUID `json:"incident_id"`
	EquipmentID  uuid.UUID `json:"equipment_id"`
	Severity     string    `json:"severity"`
	Kind         string    `json:"kind"`
	Zone         string    `json:"zone"`
	ActionStatus string    `json:"action_status"`
	At           time.Time `json:"at"`
}

// AgentEvent reports agent registration/heartbeat activity.
type AgentEvent struct {
	AgentID uuid.UUID `json:"agent_id"`
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
}

// NewEnvelope wraps a typed payload for publishing.
func NewEnvelope(eventType string, aggregateID uuid.UUID, data interface{}, correlationID string) (*Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateID:   aggregateID,
		Timestamp:     time.Now(),
		Data:          payload,
		CorrelationID: correlationID,
	}, nil
}
