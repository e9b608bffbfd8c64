package repository

import (
	"context"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type AlertRepository interface {
	List(ctx context.Context) ([]models.Alert, error)
	SaveAll(ctx context.Context, alerts []models.Alert) error
	Update(ctx context.Context, fn func(alerts []models.Alert) (bool, error)) error
	Add(ctx context.Context, alerts ...models.Alert) error
	DeleteByMaintenance(ctx context.Context, maintenanceID string) (int, error)
	DeleteByMachine(ctx context.Context, machineID string) (int, error)
}

type alertRepository struct {
	alerts *collection[models.Alert]
}

func NewAlertRepository(store kvstore.Store) AlertRepository {
	return &alertRepository{alerts: newCollection[models.Alert](store, KeyAlerts)}
}

func (r *alertRepository) List(ctx context.Context) ([]models.Alert, error) {
	return r.alerts.load(ctx)
}

func (r *alertRepository) SaveAll(ctx context.Context, alerts []models.Alert) error {
	return r.alerts.save(ctx, alerts)
}

// Update hands the current alerts to fn under the collection lock. fn mutates
// the slice in place and reports whether anything changed; nothing is written
// otherwise.
func (r *alertRepository) Update(ctx context.Context, fn func(alerts []models.Alert) (bool, error)) error {
	return r.alerts.update(ctx, func(items []models.Alert) ([]models.Alert, error) {
		changed, err := fn(items)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, errNoChange
		}
		return items, nil
	})
}

func (r *alertRepository) Add(ctx context.Context, alerts ...models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return r.alerts.update(ctx, func(items []models.Alert) ([]models.Alert, error) {
		return append(items, alerts...), nil
	})
}

func (r *alertRepository) DeleteByMaintenance(ctx context.Context, maintenanceID string) (int, error) {
	return r.deleteWhere(ctx, func(a models.Alert) bool { return a.MaintenanceID == maintenanceID })
}

func (r *alertRepository) DeleteByMachine(ctx context.Context, machineID string) (int, error) {
	return r.deleteWhere(ctx, func(a models.Alert) bool { return a.MachineID == machineID })
}

func (r *alertRepository) deleteWhere(ctx context.Context, match func(models.Alert) bool) (int, error) {
	removed := 0
	err := r.alerts.update(ctx, func(items []models.Alert) ([]models.Alert, error) {
		n := len(items)
		items = filter(items, func(a models.Alert) bool { return !match(a) })
		removed = n - len(items)
		return items, nil
	})
	return removed, err
}
