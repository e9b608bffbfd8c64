package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

type SettingsHandler struct {
	repo   repository.SettingsRepository
	logger zerolog.Logger
}

func NewSettingsHandler(repo repository.SettingsRepository, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "settings").Logger(),
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) SetNotificationEmails(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emails []string `json:"emails"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings, err := h.repo.SetNotificationEmails(r.Context(), req.Emails)
	if err != nil {
		writeError(w, h.logger, err, "Failed to save notification emails")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
