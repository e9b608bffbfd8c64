package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type SettingsRepository interface {
	Get(ctx context.Context) (models.Settings, error)
	SetNotificationEmails(ctx context.Context, emails []string) (models.Settings, error)
}

type settingsRepository struct {
	store kvstore.Store
}

func NewSettingsRepository(store kvstore.Store) SettingsRepository {
	return &settingsRepository{store: store}
}

func (r *settingsRepository) Get(ctx context.Context) (models.Settings, error) {
	raw, ok, err := r.store.Get(ctx, KeySettings)
	if err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to read settings")
	}
	var settings models.Settings
	if !ok || raw == "" {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to decode settings")
	}
	return settings, nil
}

func (r *settingsRepository) SetNotificationEmails(ctx context.Context, emails []string) (models.Settings, error) {
	settings, err := r.Get(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	settings.NotificationEmails = NormalizeEmails(emails)

	raw, err := json.Marshal(settings)
	if err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to encode settings")
	}
	if err := r.store.Set(ctx, KeySettings, string(raw)); err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to write settings")
	}
	return settings, nil
}

// NormalizeEmails trims addresses, drops blanks and removes case-insensitive duplicates.
func NormalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		k := strings.ToLower(e)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
