package alerts

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// AlertStore is the persistence the recalculation pass reads and writes.
// Update runs fn under the store's write lock and persists the slice only
// when fn reports a change.
type AlertStore interface {
	List(ctx context.Context) ([]models.Alert, error)
	Update(ctx context.Context, fn func(alerts []models.Alert) (bool, error)) error
}

// MachineLookup resolves machines by ID.
type MachineLookup interface {
	List(ctx context.Context) ([]models.Machine, error)
}

type Recalculator struct {
	alerts   AlertStore
	machines MachineLookup
	now      func() time.Time
	logger   zerolog.Logger
}

func NewRecalculator(alerts AlertStore, machines MachineLookup, logger zerolog.Logger) *Recalculator {
	return &Recalculator{
		alerts:   alerts,
		machines: machines,
		now:      time.Now,
		logger:   logger.With().Str("component", "alert_recalculator").Logger(),
	}
}

// WithClock replaces the clock used to stamp updated alerts.
func (r *Recalculator) WithClock(now func() time.Time) *Recalculator {
	r.now = now
	return r
}

// Recalculate re-derives every alert status from its machine's current meter
// and persists the collection only when at least one status changed. Alerts
// whose machine no longer exists are left as they are. The statuses are
// rewritten under the alert store's lock so concurrent adds and deletes are
// not lost.
func (r *Recalculator) Recalculate(ctx context.Context) (int, error) {
	list, err := r.alerts.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load alerts")
	}
	if len(list) == 0 {
		return 0, nil
	}

	changed := 0
	err = r.alerts.Update(ctx, func(alerts []models.Alert) (bool, error) {
		changed = 0
		machines, err := r.machines.List(ctx)
		if err != nil {
			return false, errors.Wrap(err, "failed to load machines")
		}
		meters := make(map[string]float64, len(machines))
		for _, m := range machines {
			meters[m.ID] = m.CurrentMeter
		}

		now := r.now()
		for i := range alerts {
			meter, ok := meters[alerts[i].MachineID]
			if !ok {
				r.logger.Debug().
					Str("alert_id", alerts[i].ID).
					Str("machine_id", alerts[i].MachineID).
					Msg("machine not found, alert left unchanged")
				continue
			}
			status := StatusFor(meter, alerts[i].NextDueMeter)
			if status == alerts[i].Status {
				continue
			}
			alerts[i].Status = status
			alerts[i].UpdatedAt = now
			changed++
		}
		return changed > 0, nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to recalculate alerts")
	}
	if changed > 0 {
		r.logger.Info().Int("changed", changed).Msg("alert statuses recalculated")
	}
	return changed, nil
}
