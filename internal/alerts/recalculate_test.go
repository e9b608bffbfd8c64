package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
}

type countingAlertStore struct {
	alerts []models.Alert
	writes int
}

func (s *countingAlertStore) List(context.Context) ([]models.Alert, error) {
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *countingAlertStore) Update(_ context.Context, fn func([]models.Alert) (bool, error)) error {
	working := append([]models.Alert(nil), s.alerts...)
	changed, err := fn(working)
	if err != nil || !changed {
		return err
	}
	s.writes++
	s.alerts = working
	return nil
}

type machineList []models.Machine

func (m machineList) List(context.Context) ([]models.Machine, error) {
	return m, nil
}

func TestRecalculateUpdatesChangedStatuses(t *testing.T) {
	store := &countingAlertStore{alerts: []models.Alert{
		{ID: "a1", MachineID: "m1", NextDueMeter: 100, Status: models.AlertStatusGreen},
		{ID: "a2", MachineID: "m1", NextDueMeter: 500, Status: models.AlertStatusGreen},
		{ID: "orphan", MachineID: "gone", NextDueMeter: 10, Status: models.AlertStatusGreen},
	}}
	machines := machineList{{ID: "m1", CurrentMeter: 100}}

	r := NewRecalculator(store, machines, zerolog.Nop()).WithClock(fixedNow)
	changed, err := r.Recalculate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, models.AlertStatusRed, store.alerts[0].Status)
	assert.Equal(t, fixedNow(), store.alerts[0].UpdatedAt)
	assert.Equal(t, models.AlertStatusGreen, store.alerts[1].Status)
	assert.Equal(t, models.AlertStatusGreen, store.alerts[2].Status, "orphan alerts stay stale")
}

func TestRecalculateIsIdempotent(t *testing.T) {
	store := &countingAlertStore{alerts: []models.Alert{
		{ID: "a1", MachineID: "m1", NextDueMeter: 100, Status: models.AlertStatusGreen},
	}}
	machines := machineList{{ID: "m1", CurrentMeter: 85}}
	r := NewRecalculator(store, machines, zerolog.Nop())

	changed, err := r.Recalculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = r.Recalculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 1, store.writes)
}

type failingMachines struct{}

func (failingMachines) List(context.Context) ([]models.Machine, error) {
	panic("machines must not be loaded when there are no alerts")
}

func TestRecalculateWithoutAlertsSkipsMachines(t *testing.T) {
	r := NewRecalculator(&countingAlertStore{}, failingMachines{}, zerolog.Nop())
	changed, err := r.Recalculate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
}

// interleavingStore runs a concurrent writer between the pass's read and its
// locked update.
type interleavingStore struct {
	repository.AlertRepository
	between func()
}

func (s *interleavingStore) List(ctx context.Context) ([]models.Alert, error) {
	list, err := s.AlertRepository.List(ctx)
	if s.between != nil {
		s.between()
		s.between = nil
	}
	return list, err
}

func TestRecalculateKeepsAlertsWrittenDuringThePass(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAlertRepository(kvstore.NewMemoryStore())
	require.NoError(t, repo.Add(ctx,
		models.Alert{ID: "due", MachineID: "m1", MaintenanceID: "s1", NextDueMeter: 100, Status: models.AlertStatusGreen},
		models.Alert{ID: "doomed", MachineID: "m1", MaintenanceID: "s2", NextDueMeter: 900, Status: models.AlertStatusGreen},
	))

	store := &interleavingStore{AlertRepository: repo, between: func() {
		require.NoError(t, repo.Add(ctx, models.Alert{ID: "new", MachineID: "m1", MaintenanceID: "s3", NextDueMeter: 110, Status: models.AlertStatusGreen}))
		_, err := repo.DeleteByMaintenance(ctx, "s2")
		require.NoError(t, err)
	}}
	machines := machineList{{ID: "m1", CurrentMeter: 100}}

	changed, err := NewRecalculator(store, machines, zerolog.Nop()).WithClock(fixedNow).Recalculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	statuses := map[string]models.AlertStatus{}
	for _, a := range list {
		statuses[a.ID] = a.Status
	}
	assert.Equal(t, map[string]models.AlertStatus{
		"due": models.AlertStatusRed,
		"new": models.AlertStatusYellow,
	}, statuses)
}
