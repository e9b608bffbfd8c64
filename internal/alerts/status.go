package alerts

import "github.com/stanstork/agrotrack-api/internal/models"

// YellowMargin is the number of meter units before the due point at which an
// alert turns yellow.
const YellowMargin = 20

// TankYellowRatio is the share of tank capacity above the alert threshold at
// which a tank alert turns yellow.
const TankYellowRatio = 0.10

// StatusFor classifies how close a machine is to its next service.
// A remaining margin of exactly zero is already red.
func StatusFor(currentMeter, nextDueMeter float64) models.AlertStatus {
	remaining := nextDueMeter - currentMeter
	switch {
	case remaining <= 0:
		return models.AlertStatusRed
	case remaining <= YellowMargin:
		return models.AlertStatusYellow
	default:
		return models.AlertStatusGreen
	}
}

// TankStatus classifies a fuel tank's level against its configured threshold.
func TankStatus(tank models.Tank) models.AlertStatus {
	margin := tank.CurrentLevel - tank.AlertThreshold
	switch {
	case margin <= 0:
		return models.AlertStatusRed
	case margin <= tank.Capacity*TankYellowRatio:
		return models.AlertStatusYellow
	default:
		return models.AlertStatusGreen
	}
}
