package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/models"
)

type StatsSource interface {
	Stats(ctx context.Context) (models.FleetStat, error)
}

type ReportHandler struct {
	stats  StatsSource
	logger zerolog.Logger
}

func NewReportHandler(stats StatsSource, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		stats:  stats,
		logger: logger.With().Str("handler", "report").Logger(),
	}
}

// FleetStats returns alert and tank status counts for the dashboard.
func (h *ReportHandler) FleetStats(w http.ResponseWriter, r *http.Request) {
	stat, err := h.stats.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to compute fleet stats")
		return
	}
	writeJSON(w, http.StatusOK, stat)
}
