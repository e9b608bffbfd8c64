package repository

import (
	"context"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type TankRepository interface {
	List(ctx context.Context) ([]models.Tank, error)
	Get(ctx context.Context, id string) (models.Tank, error)
	Upsert(ctx context.Context, tank models.Tank) (models.Tank, error)
	AdjustLevel(ctx context.Context, id string, delta float64) (models.Tank, error)
	Withdraw(ctx context.Context, id string, liters float64) (models.Tank, error)
}

type tankRepository struct {
	tanks *collection[models.Tank]
}

func NewTankRepository(store kvstore.Store) TankRepository {
	return &tankRepository{tanks: newCollection[models.Tank](store, KeyTanks)}
}

func (r *tankRepository) List(ctx context.Context) ([]models.Tank, error) {
	return r.tanks.load(ctx)
}

func (r *tankRepository) Get(ctx context.Context, id string) (models.Tank, error) {
	tanks, err := r.tanks.load(ctx)
	if err != nil {
		return models.Tank{}, err
	}
	for _, t := range tanks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Tank{}, ErrNotFound
}

func (r *tankRepository) Upsert(ctx context.Context, tank models.Tank) (models.Tank, error) {
	err := r.tanks.update(ctx, func(items []models.Tank) ([]models.Tank, error) {
		for i := range items {
			if items[i].ID == tank.ID {
				items[i] = tank
				return items, nil
			}
		}
		return append(items, tank), nil
	})
	return tank, err
}

// AdjustLevel adds delta litres to the tank level, clamped to [0, capacity].
func (r *tankRepository) AdjustLevel(ctx context.Context, id string, delta float64) (models.Tank, error) {
	var out models.Tank
	err := r.tanks.update(ctx, func(items []models.Tank) ([]models.Tank, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			level := items[i].CurrentLevel + delta
			if level < 0 {
				level = 0
			}
			if items[i].Capacity > 0 && level > items[i].Capacity {
				level = items[i].Capacity
			}
			items[i].CurrentLevel = level
			out = items[i]
			return items, nil
		}
		return nil, ErrNotFound
	})
	return out, err
}

// Withdraw debits liters from the tank, failing with ErrInsufficientLevel
// when the tank holds less than that.
func (r *tankRepository) Withdraw(ctx context.Context, id string, liters float64) (models.Tank, error) {
	var out models.Tank
	err := r.tanks.update(ctx, func(items []models.Tank) ([]models.Tank, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if liters > items[i].CurrentLevel {
				return nil, ErrInsufficientLevel
			}
			items[i].CurrentLevel -= liters
			out = items[i]
			return items, nil
		}
		return nil, ErrNotFound
	})
	return out, err
}
