package models

import (
	"time"

	"github.com/google/uuid"
)

// Equipment is a processing machine addressable by id.
type Equipment struct {
	ID                     uuid.UUID
	Name                   string
	Kind                   EquipmentKind
	Status                 EquipmentStatus
	Efficiency             float64
	Zone                   string
	CurrentLotID           *uuid.UUID
	TotalWafersProcessed   int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Available reports whether the equipment may legally receive a new
// assignment from the Scheduler.
func (e *Equipment) Available() bool {
	return e.Status == EquipmentIdle || e.Status == EquipmentRunning
}

// AcceptsRecipe maps a recipe family to acceptable equipment kinds.
func AcceptsRecipe(kind EquipmentKind, recipeKind string) bool {
	family, ok := recipeFamilies[recipeKind]
	if !ok {
		// unknown recipe -> any kind
		return true
	}
	return family == kind
}

var recipeFamilies = map[string]EquipmentKind{
	"lithography": KindLithography,
	"euv":         KindLithography,
	"duv":         KindLithography,
	"etch":        KindEtching,
	"etching":     KindEtching,
	"cvd":         KindDeposition,
	"pvd":         KindDeposition,
	"deposition":  KindDeposition,
	"inspection":  KindInspection,
	"cleaning":    KindCleaning,
}
