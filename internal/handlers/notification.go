package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type HistorySource interface {
	Entries(ctx context.Context) ([]models.NotificationHistoryEntry, error)
}

type NotificationHandler struct {
	history HistorySource
	logger  zerolog.Logger
}

func NewNotificationHandler(history HistorySource, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		history: history,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

// List returns the most recent notification history entries, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.history.Entries(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to list notifications")
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastNotifiedAt.After(entries[j].LastNotifiedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": entries,
	})
}
