package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
)

var (
	// ErrNotFound is returned when a record does not exist in its collection.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientLevel is returned when a withdrawal exceeds the tank level.
	ErrInsufficientLevel = errors.New("tank level is below the requested amount")

	// errNoChange aborts an update without writing.
	errNoChange = errors.New("no change")
)

const (
	KeyMachines            = "machines"
	KeyMaintenances        = "maintenances"
	KeyAlerts              = "alerts"
	KeyTanks               = "tanks"
	KeyRefuelings          = "refuelings"
	KeySettings            = "settings"
	KeyNotificationHistory = "notification_history"
)

// collection is a JSON array stored under a single key. Reads go through an
// in-memory projection that is refreshed on every successful write and
// dropped on failure, so the store stays the source of truth.
type collection[T any] struct {
	store  kvstore.Store
	key    string
	mu     sync.Mutex
	cached []T
	loaded bool
}

func newCollection[T any](store kvstore.Store, key string) *collection[T] {
	return &collection[T]{store: store, key: key}
}

func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *collection[T]) loadLocked(ctx context.Context) ([]T, error) {
	if c.loaded {
		return clone(c.cached), nil
	}
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", c.key)
	}
	var items []T
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", c.key)
		}
	}
	c.cached = items
	c.loaded = true
	return clone(items), nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx, items)
}

func (c *collection[T]) saveLocked(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", c.key)
	}
	if err := c.store.Set(ctx, c.key, string(raw)); err != nil {
		c.loaded = false
		c.cached = nil
		return errors.Wrapf(err, "failed to write %s", c.key)
	}
	c.cached = clone(items)
	c.loaded = true
	return nil
}

// update runs a read-modify-write under the collection lock. When fn returns
// errNoChange nothing is written and update returns nil.
func (c *collection[T]) update(ctx context.Context, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.loadLocked(ctx)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.saveLocked(ctx, items)
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
