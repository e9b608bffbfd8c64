package models

import "time"

// MaintenanceInterval says how many meter units after the service an item is due again.
type MaintenanceInterval struct {
	Item     string  `json:"item"`
	Interval float64 `json:"interval"`
}

type Maintenance struct {
	ID        string                `json:"id"`
	MachineID string                `json:"machine_id"`
	Meter     float64               `json:"meter"`
	Items     []string              `json:"items"`
	Notes     string                `json:"notes"`
	Intervals []MaintenanceInterval `json:"intervals"`
	CreatedAt time.Time             `json:"created_at"`
}

type Refueling struct {
	ID        string    `json:"id"`
	MachineID string    `json:"machine_id"`
	TankID    string    `json:"tank_id"`
	Liters    float64   `json:"liters"`
	Meter     float64   `json:"meter"`
	CreatedAt time.Time `json:"created_at"`
}
