package repository

import (
	"context"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type MachineRepository interface {
	List(ctx context.Context) ([]models.Machine, error)
	Get(ctx context.Context, id string) (models.Machine, error)
	Create(ctx context.Context, machine models.Machine) (models.Machine, error)
	Update(ctx context.Context, id string, fn func(machine *models.Machine) error) (models.Machine, error)
	Delete(ctx context.Context, id string) error
}

type machineRepository struct {
	machines *collection[models.Machine]
}

func NewMachineRepository(store kvstore.Store) MachineRepository {
	return &machineRepository{machines: newCollection[models.Machine](store, KeyMachines)}
}

func (r *machineRepository) List(ctx context.Context) ([]models.Machine, error) {
	return r.machines.load(ctx)
}

func (r *machineRepository) Get(ctx context.Context, id string) (models.Machine, error) {
	machines, err := r.machines.load(ctx)
	if err != nil {
		return models.Machine{}, err
	}
	for _, m := range machines {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Machine{}, ErrNotFound
}

func (r *machineRepository) Create(ctx context.Context, machine models.Machine) (models.Machine, error) {
	err := r.machines.update(ctx, func(items []models.Machine) ([]models.Machine, error) {
		return append(items, machine), nil
	})
	return machine, err
}

// Update applies fn to the stored machine under the collection lock, so
// check-and-set logic in fn sees the latest state. The machine is written
// back only when fn changed it.
func (r *machineRepository) Update(ctx context.Context, id string, fn func(machine *models.Machine) error) (models.Machine, error) {
	var out models.Machine
	err := r.machines.update(ctx, func(items []models.Machine) ([]models.Machine, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			before := items[i]
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			items[i].ID = id
			out = items[i]
			if items[i] == before {
				return nil, errNoChange
			}
			return items, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.Machine{}, err
	}
	return out, nil
}

func (r *machineRepository) Delete(ctx context.Context, id string) error {
	return r.machines.update(ctx, func(items []models.Machine) ([]models.Machine, error) {
		n := len(items)
		items = filter(items, func(m models.Machine) bool { return m.ID != id })
		if len(items) == n {
			return nil, ErrNotFound
		}
		return items, nil
	})
}
