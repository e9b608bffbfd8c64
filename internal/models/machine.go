package models

import "time"

type MachineType string

const (
	MachineTypeTractor   MachineType = "tractor"
	MachineTypeCombine   MachineType = "combine"
	MachineTypeSprayer   MachineType = "sprayer"
	MachineTypeGenerator MachineType = "generator"
	MachineTypeLoader    MachineType = "loader"
	MachineTypeTruck     MachineType = "truck"
	MachineTypePickup    MachineType = "pickup"
	MachineTypeCar       MachineType = "car"
	MachineTypePump      MachineType = "pump"
	MachineTypeBaler     MachineType = "baler"
)

// MeterUnit is the unit a machine's running meter is counted in.
type MeterUnit string

const (
	MeterUnitHours      MeterUnit = "hours"
	MeterUnitKilometers MeterUnit = "km"
	MeterUnitCycles     MeterUnit = "cycles"
)

var meterUnits = map[MachineType]MeterUnit{
	MachineTypeTractor:   MeterUnitHours,
	MachineTypeCombine:   MeterUnitHours,
	MachineTypeSprayer:   MeterUnitHours,
	MachineTypeGenerator: MeterUnitHours,
	MachineTypeLoader:    MeterUnitHours,
	MachineTypeTruck:     MeterUnitKilometers,
	MachineTypePickup:    MeterUnitKilometers,
	MachineTypeCar:       MeterUnitKilometers,
	MachineTypePump:      MeterUnitCycles,
	MachineTypeBaler:     MeterUnitCycles,
}

// Unit returns the meter unit for the machine type. Unknown types count hours.
func (t MachineType) Unit() MeterUnit {
	if unit, ok := meterUnits[t]; ok {
		return unit
	}
	return MeterUnitHours
}

// IsValid reports whether t is one of the known machine types.
func (t MachineType) IsValid() bool {
	_, ok := meterUnits[t]
	return ok
}

type Machine struct {
	ID           string      `json:"id"`
	PropertyID   string      `json:"property_id"`
	Name         string      `json:"name"`
	Type         MachineType `json:"type"`
	CurrentMeter float64     `json:"current_meter"`
	Archived     bool        `json:"archived"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
