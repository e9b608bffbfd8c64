package alerts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// FromMaintenance creates one alert per serviced item that carries a positive
// interval. The status is computed against the machine's meter at creation.
func FromMaintenance(m models.Maintenance, currentMeter float64, now time.Time) []models.Alert {
	var out []models.Alert
	for _, iv := range m.Intervals {
		item := strings.TrimSpace(iv.Item)
		if item == "" || iv.Interval <= 0 {
			continue
		}
		nextDue := m.Meter + iv.Interval
		out = append(out, models.Alert{
			ID:               uuid.NewString(),
			MachineID:        m.MachineID,
			MaintenanceID:    m.ID,
			Item:             item,
			LastServiceMeter: m.Meter,
			Interval:         iv.Interval,
			NextDueMeter:     nextDue,
			Status:           StatusFor(currentMeter, nextDue),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return out
}
