package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/config"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// FirebasePusher publishes alert pushes to the devices subscribed to a topic.
type FirebasePusher struct {
	enabled   bool
	projectID string
	topic     string
	logger    zerolog.Logger
}

func NewFirebasePusher(cfg config.FirebaseConfig, logger zerolog.Logger) *FirebasePusher {
	enabled := cfg.Enabled && cfg.ProjectID != "" && cfg.Topic != ""
	return &FirebasePusher{
		enabled:   enabled,
		projectID: cfg.ProjectID,
		topic:     cfg.Topic,
		logger:    logger.With().Str("notifier", "firebase").Logger(),
	}
}

func (n *FirebasePusher) Push(_ context.Context, msg models.PushMessage) error {
	if !n.enabled {
		return nil
	}
	n.logger.Info().
		Str("title", msg.Title).
		Str("body", msg.Body).
		Interface("data", msg.Data).
		Str("topic", n.topic).
		Msg("push notification dispatched (mock)")
	return nil
}

func (n *FirebasePusher) String() string {
	if !n.enabled {
		return "FirebasePusher(disabled)"
	}
	return fmt.Sprintf("FirebasePusher(project=%s, topic=%s)", n.projectID, n.topic)
}
