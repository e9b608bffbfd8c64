package repository

import (
	"context"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type MaintenanceRepository interface {
	List(ctx context.Context) ([]models.Maintenance, error)
	ListByMachine(ctx context.Context, machineID string) ([]models.Maintenance, error)
	Get(ctx context.Context, id string) (models.Maintenance, error)
	Create(ctx context.Context, maintenance models.Maintenance) (models.Maintenance, error)
	Delete(ctx context.Context, id string) error
	DeleteByMachine(ctx context.Context, machineID string) error
}

type maintenanceRepository struct {
	maintenances *collection[models.Maintenance]
}

func NewMaintenanceRepository(store kvstore.Store) MaintenanceRepository {
	return &maintenanceRepository{maintenances: newCollection[models.Maintenance](store, KeyMaintenances)}
}

func (r *maintenanceRepository) List(ctx context.Context) ([]models.Maintenance, error) {
	return r.maintenances.load(ctx)
}

func (r *maintenanceRepository) ListByMachine(ctx context.Context, machineID string) ([]models.Maintenance, error) {
	items, err := r.maintenances.load(ctx)
	if err != nil {
		return nil, err
	}
	return filter(items, func(m models.Maintenance) bool { return m.MachineID == machineID }), nil
}

func (r *maintenanceRepository) Get(ctx context.Context, id string) (models.Maintenance, error) {
	items, err := r.maintenances.load(ctx)
	if err != nil {
		return models.Maintenance{}, err
	}
	for _, m := range items {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Maintenance{}, ErrNotFound
}

func (r *maintenanceRepository) Create(ctx context.Context, maintenance models.Maintenance) (models.Maintenance, error) {
	err := r.maintenances.update(ctx, func(items []models.Maintenance) ([]models.Maintenance, error) {
		return append(items, maintenance), nil
	})
	return maintenance, err
}

func (r *maintenanceRepository) Delete(ctx context.Context, id string) error {
	return r.maintenances.update(ctx, func(items []models.Maintenance) ([]models.Maintenance, error) {
		n := len(items)
		items = filter(items, func(m models.Maintenance) bool { return m.ID != id })
		if len(items) == n {
			return nil, ErrNotFound
		}
		return items, nil
	})
}

func (r *maintenanceRepository) DeleteByMachine(ctx context.Context, machineID string) error {
	return r.maintenances.update(ctx, func(items []models.Maintenance) ([]models.Maintenance, error) {
		return filter(items, func(m models.Maintenance) bool { return m.MachineID != machineID }), nil
	})
}
