package models

import "time"

// TankAlertPrefix namespaces tank alert IDs so they never collide with maintenance alerts.
const TankAlertPrefix = "tank:"

type Tank struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Capacity       float64   `json:"capacity"`
	CurrentLevel   float64   `json:"current_level"`
	AlertThreshold float64   `json:"alert_threshold"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AlertID is the identifier used for the tank's low-fuel alert.
func (t Tank) AlertID() string {
	return TankAlertPrefix + t.ID
}
