package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/models"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

const DefaultHistoryRetention = 7 * 24 * time.Hour

// HistoryStore remembers which alerts were already surfaced on the current
// calendar day. It does read-modify-write on a single key and assumes a single
// writer.
type HistoryStore struct {
	store     kvstore.Store
	loc       *time.Location
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewHistoryStore(store kvstore.Store, loc *time.Location, logger zerolog.Logger) *HistoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryStore{
		store:     store,
		loc:       loc,
		retention: DefaultHistoryRetention,
		now:       time.Now,
		logger:    logger.With().Str("component", "notification_history").Logger(),
	}
}

func (h *HistoryStore) WithClock(now func() time.Time) *HistoryStore {
	h.now = now
	return h
}

func (h *HistoryStore) WithRetention(retention time.Duration) *HistoryStore {
	if retention > 0 {
		h.retention = retention
	}
	return h
}

// WasNotifiedToday reports whether alertID was marked on the current local
// calendar day. Read failures count as "not notified".
func (h *HistoryStore) WasNotifiedToday(ctx context.Context, alertID string) bool {
	entries, err := h.Entries(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Str("alert_id", alertID).Msg("notification history unavailable")
		return false
	}
	today := h.now()
	for _, e := range entries {
		if e.AlertID == alertID {
			return sameDay(e.LastNotifiedAt, today, h.loc)
		}
	}
	return false
}

// MarkNotified records alertID as notified now, replacing any earlier entry,
// and drops entries older than the retention window.
func (h *HistoryStore) MarkNotified(ctx context.Context, alertID string) error {
	entries, err := h.Entries(ctx)
	if err != nil {
		return err
	}

	now := h.now()
	kept := make([]models.NotificationHistoryEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.AlertID == alertID {
			continue
		}
		if now.Sub(e.LastNotifiedAt) > h.retention {
			continue
		}
		kept = append(kept, e)
	}
	kept = append(kept, models.NotificationHistoryEntry{AlertID: alertID, LastNotifiedAt: now})

	raw, err := json.Marshal(kept)
	if err != nil {
		return errors.Wrap(err, "failed to encode notification history")
	}
	if err := h.store.Set(ctx, repository.KeyNotificationHistory, string(raw)); err != nil {
		return errors.Wrap(err, "failed to write notification history")
	}
	return nil
}

// Entries returns the persisted history.
func (h *HistoryStore) Entries(ctx context.Context) ([]models.NotificationHistoryEntry, error) {
	raw, ok, err := h.store.Get(ctx, repository.KeyNotificationHistory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read notification history")
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []models.NotificationHistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode notification history")
	}
	return entries, nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
