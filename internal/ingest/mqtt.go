// Package ingest subscribes to machine telemetry and feeds meter readings
// into the fleet service.
package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/config"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/models"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

const (
	connectTimeout  = 10 * time.Second
	handleTimeout   = 5 * time.Second
	disconnectQuiet = 250
)

type MeterUpdater interface {
	UpdateMeter(ctx context.Context, machineID string, meter float64) (models.Machine, error)
}

// Reading is one meter sample published by a machine's telematics unit.
type Reading struct {
	MachineID string  `json:"machine_id"`
	Meter     float64 `json:"meter"`
}

type Subscriber struct {
	cfg     config.MQTTConfig
	updater MeterUpdater
	logger  zerolog.Logger
}

func NewSubscriber(cfg config.MQTTConfig, updater MeterUpdater, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		cfg:     cfg,
		updater: updater,
		logger:  logger.With().Str("component", "mqtt_ingest").Logger(),
	}
}

// Start connects to the broker and subscribes to the meter topic. The
// subscription is renewed on every reconnect. The client disconnects when
// ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, 1, s.HandleMessage)
		if token.WaitTimeout(connectTimeout) && token.Error() != nil {
			s.logger.Error().Err(token.Error()).Str("topic", s.cfg.Topic).Msg("failed to subscribe")
			return
		}
		s.logger.Info().Str("topic", s.cfg.Topic).Msg("subscribed to meter telemetry")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.Errorf("timed out connecting to %s", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to connect to %s", s.cfg.Broker)
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectQuiet)
		s.logger.Info().Msg("mqtt client disconnected")
	}()
	return nil
}

// HandleMessage applies one telemetry message. Readings below the current
// meter are ignored.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	reading, err := ParseReading(msg.Topic(), msg.Payload())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed reading")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	_, err = s.updater.UpdateMeter(ctx, reading.MachineID, reading.Meter)
	switch {
	case err == nil:
		s.logger.Debug().Str("machine_id", reading.MachineID).Float64("meter", reading.Meter).Msg("meter updated")
	case errors.Is(err, fleet.ErrMeterRegression):
		s.logger.Debug().Str("machine_id", reading.MachineID).Float64("meter", reading.Meter).Msg("ignoring stale reading")
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn().Str("machine_id", reading.MachineID).Msg("reading for unknown machine")
	default:
		s.logger.Error().Err(err).Str("machine_id", reading.MachineID).Msg("failed to apply reading")
	}
}

// ParseReading decodes a payload. When the payload omits machine_id it is
// taken from a topic of the form farm/machines/<id>/meter.
func ParseReading(topic string, payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reading{}, errors.Wrap(err, "invalid reading payload")
	}
	if r.MachineID == "" {
		r.MachineID = machineFromTopic(topic)
	}
	if r.MachineID == "" {
		return Reading{}, errors.New("reading has no machine id")
	}
	if r.Meter < 0 {
		return Reading{}, errors.New("reading has a negative meter")
	}
	return r, nil
}

func machineFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 4 && parts[0] == "farm" && parts[1] == "machines" && parts[3] == "meter" {
		return parts[2]
	}
	return ""
}
