package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DispatchRecord is an immutable log of one scheduler decision.
type DispatchRecord struct {
	ID           uuid.UUID
	LotID        uuid.UUID
	EquipmentID  uuid.UUID
	Reason       string
	Score        decimal.Decimal
	DispatchedAt time.Time
}
