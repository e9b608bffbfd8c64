package notification

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// PushSender fires a local device notification. Delivery is best effort.
type PushSender interface {
	Push(ctx context.Context, msg models.PushMessage) error
}

// EmailSender delivers one HTML email to one recipient.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// RecipientSource returns the addresses that receive the daily digest.
type RecipientSource func(ctx context.Context) ([]string, error)

// StaticRecipients returns a RecipientSource over a fixed list.
func StaticRecipients(recipients ...string) RecipientSource {
	cleaned := sanitizeRecipients(recipients)
	return func(context.Context) ([]string, error) {
		return cleaned, nil
	}
}

// SettingsSource reads the stored app settings.
type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

// SettingsRecipients merges the configured addresses with the ones saved in
// settings, de-duplicated case-insensitively. When settings cannot be read the
// configured addresses are still returned.
func SettingsRecipients(settings SettingsSource, configured ...string) RecipientSource {
	static := sanitizeRecipients(configured)
	return func(ctx context.Context) ([]string, error) {
		stored, err := settings.Get(ctx)
		if err != nil {
			return static, err
		}
		return mergeRecipients(static, stored.NotificationEmails), nil
	}
}

func mergeRecipients(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, recipient := range sanitizeRecipients(list) {
			key := strings.ToLower(recipient)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, recipient)
		}
	}
	return out
}

func sanitizeRecipients(recipients []string) []string {
	var cleaned []string
	for _, recipient := range recipients {
		if recipient = strings.TrimSpace(recipient); recipient != "" {
			cleaned = append(cleaned, recipient)
		}
	}
	return cleaned
}

func logNotifyError(logger zerolog.Logger, err error, channel, alertID string) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("alert_id", alertID).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
