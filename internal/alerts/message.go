package alerts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/stanstork/agrotrack-api/internal/models"
)

// Remaining returns how many meter units are left before the alert is due.
// Negative values mean the service is overdue.
func Remaining(alert models.Alert, machine models.Machine) float64 {
	return alert.NextDueMeter - machine.CurrentMeter
}

// DueText describes the remaining margin in the machine's unit, e.g.
// "12 hours remaining", "due now" or "3.5 km overdue".
func DueText(remaining float64, unit models.MeterUnit) string {
	amount := FormatAmount(math.Abs(remaining))
	switch {
	case amount == "0":
		return "due now"
	case remaining < 0:
		return fmt.Sprintf("%s %s overdue", amount, unit)
	default:
		return fmt.Sprintf("%s %s remaining", amount, unit)
	}
}

// MaintenanceTitle is the push title for a maintenance alert.
func MaintenanceTitle(alert models.Alert, machine models.Machine) string {
	if alert.Status == models.AlertStatusRed {
		return fmt.Sprintf("Maintenance overdue: %s", machine.Name)
	}
	return fmt.Sprintf("Maintenance due soon: %s", machine.Name)
}

// MaintenanceBody is the push body for a maintenance alert.
func MaintenanceBody(alert models.Alert, machine models.Machine) string {
	return fmt.Sprintf("%s: %s", alert.Item, DueText(Remaining(alert, machine), machine.Type.Unit()))
}

func TankTitle(tank models.Tank) string {
	return fmt.Sprintf("Low fuel: %s", tank.Name)
}

func TankBody(tank models.Tank) string {
	return fmt.Sprintf("Current level %s L of %s L (alert at %s L)",
		FormatAmount(tank.CurrentLevel), FormatAmount(tank.Capacity), FormatAmount(tank.AlertThreshold))
}

// FormatAmount renders a meter or volume value with at most one decimal.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
