package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a registered automated collaborator (sentinel, VM worker,
// chaos façade, operator console) that authenticates with a bearer token
// minted at registration.
type Agent struct {
	ID            uuid.UUID
	Kind          AgentKind
	EquipmentID   *uuid.UUID
	Status        AgentStatus
	LastHeartbeat time.Time
	Capabilities  []string
	CreatedAt     time.Time
}
