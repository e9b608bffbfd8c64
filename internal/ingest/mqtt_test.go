package ingest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agrotrack-api/internal/config"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

func TestParseReading(t *testing.T) {
	r, err := ParseReading("farm/machines/m1/meter", []byte(`{"machine_id":"m9","meter":812.5}`))
	require.NoError(t, err)
	assert.Equal(t, Reading{MachineID: "m9", Meter: 812.5}, r)

	r, err = ParseReading("farm/machines/m1/meter", []byte(`{"meter":10}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", r.MachineID)

	_, err = ParseReading("other/topic", []byte(`{"meter":10}`))
	assert.Error(t, err)

	_, err = ParseReading("farm/machines/m1/meter", []byte(`not json`))
	assert.Error(t, err)

	_, err = ParseReading("farm/machines/m1/meter", []byte(`{"meter":-3}`))
	assert.Error(t, err)
}

func TestHandleMessageIgnoresLowerReadings(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	machines := repository.NewMachineRepository(store)
	svc := fleet.NewService(fleet.ServiceConfig{
		Machines:     machines,
		Maintenances: repository.NewMaintenanceRepository(store),
		Alerts:       repository.NewAlertRepository(store),
		Tanks:        repository.NewTankRepository(store),
		Refuelings:   repository.NewRefuelingRepository(store),
	}, zerolog.Nop())

	m, err := svc.CreateMachine(ctx, fleet.CreateMachineInput{Name: "Jacto Uniport", Type: models.MachineTypeSprayer, Meter: 300})
	require.NoError(t, err)

	sub := NewSubscriber(config.MQTTConfig{Topic: "farm/machines/+/meter"}, svc, zerolog.Nop())

	sub.HandleMessage(nil, message{topic: "farm/machines/" + m.ID + "/meter", payload: []byte(`{"meter":320}`)})
	got, err := machines.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 320.0, got.CurrentMeter)

	sub.HandleMessage(nil, message{topic: "farm/machines/" + m.ID + "/meter", payload: []byte(`{"meter":310}`)})
	got, err = machines.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 320.0, got.CurrentMeter)

	sub.HandleMessage(nil, message{topic: "farm/machines/ghost/meter", payload: []byte(`{"meter":5}`)})
}
