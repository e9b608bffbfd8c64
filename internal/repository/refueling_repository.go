package repository

import (
	"context"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type RefuelingRepository interface {
	ListByMachine(ctx context.Context, machineID string) ([]models.Refueling, error)
	Create(ctx context.Context, refueling models.Refueling) (models.Refueling, error)
	DeleteByMachine(ctx context.Context, machineID string) error
}

type refuelingRepository struct {
	refuelings *collection[models.Refueling]
}

func NewRefuelingRepository(store kvstore.Store) RefuelingRepository {
	return &refuelingRepository{refuelings: newCollection[models.Refueling](store, KeyRefuelings)}
}

func (r *refuelingRepository) ListByMachine(ctx context.Context, machineID string) ([]models.Refueling, error) {
	items, err := r.refuelings.load(ctx)
	if err != nil {
		return nil, err
	}
	return filter(items, func(f models.Refueling) bool { return f.MachineID == machineID }), nil
}

func (r *refuelingRepository) Create(ctx context.Context, refueling models.Refueling) (models.Refueling, error) {
	err := r.refuelings.update(ctx, func(items []models.Refueling) ([]models.Refueling, error) {
		return append(items, refueling), nil
	})
	return refueling, err
}

func (r *refuelingRepository) DeleteByMachine(ctx context.Context, machineID string) error {
	return r.refuelings.update(ctx, func(items []models.Refueling) ([]models.Refueling, error) {
		return filter(items, func(f models.Refueling) bool { return f.MachineID != machineID }), nil
	})
}
