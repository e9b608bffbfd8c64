package models

import "time"

type AlertStatus string

const (
	AlertStatusGreen  AlertStatus = "green"
	AlertStatusYellow AlertStatus = "yellow"
	AlertStatusRed    AlertStatus = "red"
)

// IsDue reports whether the status warrants a notification.
func (s AlertStatus) IsDue() bool {
	return s == AlertStatusRed || s == AlertStatusYellow
}

type Alert struct {
	ID               string      `json:"id"`
	MachineID        string      `json:"machine_id"`
	MaintenanceID    string      `json:"maintenance_id"`
	Item             string      `json:"item"`
	LastServiceMeter float64     `json:"last_service_meter"`
	Interval         float64     `json:"interval"`
	NextDueMeter     float64     `json:"next_due_meter"`
	Status           AlertStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
