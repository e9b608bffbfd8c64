package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stanstork/agrotrack-api/internal/models"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name    string
		current float64
		nextDue float64
		want    models.AlertStatus
	}{
		{"exactly at threshold", 100, 100, models.AlertStatusRed},
		{"overdue", 130, 100, models.AlertStatusRed},
		{"yellow upper bound", 80, 100, models.AlertStatusYellow},
		{"just inside yellow", 99.9, 100, models.AlertStatusYellow},
		{"just outside yellow", 79.9, 100, models.AlertStatusGreen},
		{"green", 70, 100, models.AlertStatusGreen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.current, tc.nextDue))
		})
	}
}

func TestStatusForMatchesMargins(t *testing.T) {
	for current := 0.0; current <= 200; current += 0.5 {
		remaining := 100 - current
		got := StatusFor(current, 100)
		switch {
		case remaining <= 0:
			assert.Equal(t, models.AlertStatusRed, got, "current=%v", current)
		case remaining <= 20:
			assert.Equal(t, models.AlertStatusYellow, got, "current=%v", current)
		default:
			assert.Equal(t, models.AlertStatusGreen, got, "current=%v", current)
		}
	}
}

func TestTankStatus(t *testing.T) {
	tank := models.Tank{Capacity: 5000, AlertThreshold: 500}

	tank.CurrentLevel = 500
	assert.Equal(t, models.AlertStatusRed, TankStatus(tank))

	tank.CurrentLevel = 1000
	assert.Equal(t, models.AlertStatusYellow, TankStatus(tank))

	tank.CurrentLevel = 1001
	assert.Equal(t, models.AlertStatusGreen, TankStatus(tank))
}

func TestDueText(t *testing.T) {
	assert.Equal(t, "15 hours overdue", DueText(-15, models.MeterUnitHours))
	assert.Equal(t, "due now", DueText(0, models.MeterUnitKilometers))
	assert.Equal(t, "12.5 km remaining", DueText(12.5, models.MeterUnitKilometers))
	assert.Equal(t, "3 cycles remaining", DueText(3.04, models.MeterUnitCycles))
	assert.Equal(t, "due now", DueText(0.04, models.MeterUnitHours))
	assert.Equal(t, "due now", DueText(-0.03, models.MeterUnitHours))
}

func TestFromMaintenance(t *testing.T) {
	m := models.Maintenance{
		ID:        "mnt-1",
		MachineID: "mach-1",
		Meter:     1000,
		Items:     []string{"oil", "filters", "grease"},
		Intervals: []models.MaintenanceInterval{
			{Item: "oil", Interval: 250},
			{Item: "filters", Interval: 10},
			{Item: "grease", Interval: 0},
		},
	}

	out := FromMaintenance(m, 1000, fixedNow())
	if assert.Len(t, out, 2) {
		assert.Equal(t, "oil", out[0].Item)
		assert.Equal(t, 1250.0, out[0].NextDueMeter)
		assert.Equal(t, models.AlertStatusGreen, out[0].Status)
		assert.Equal(t, "mnt-1", out[0].MaintenanceID)

		assert.Equal(t, "filters", out[1].Item)
		assert.Equal(t, 1010.0, out[1].NextDueMeter)
		assert.Equal(t, models.AlertStatusYellow, out[1].Status)
		assert.NotEqual(t, out[0].ID, out[1].ID)
	}
}
