package models

import "time"

// NotificationHistoryEntry records the last time an alert was surfaced to the user.
type NotificationHistoryEntry struct {
	AlertID        string    `json:"alert_id"`
	LastNotifiedAt time.Time `json:"last_notified_at"`
}

type AlertKind string

const (
	AlertKindTank        AlertKind = "tank"
	AlertKindMaintenance AlertKind = "maintenance"
)

// PushMessage is a single local device notification.
type PushMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Settings struct {
	NotificationEmails []string `json:"notification_emails"`
}
