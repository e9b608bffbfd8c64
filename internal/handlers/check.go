package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/authz"
	"github.com/stanstork/agrotrack-api/internal/notification"
	"github.com/stanstork/agrotrack-api/internal/worker"
)

// CheckRunner is the part of the alert worker driven by client lifecycle events.
type CheckRunner interface {
	Foreground()
	Background()
	IsForeground() bool
	LastCheck() time.Time
	ForceCheck(ctx context.Context, forceEmail bool) (notification.Report, error)
}

type CheckHandler struct {
	runner CheckRunner
	logger zerolog.Logger
}

func NewCheckHandler(runner CheckRunner, logger zerolog.Logger) *CheckHandler {
	return &CheckHandler{
		runner: runner,
		logger: logger.With().Str("handler", "check").Logger(),
	}
}

func (h *CheckHandler) status() map[string]interface{} {
	out := map[string]interface{}{"foreground": h.runner.IsForeground()}
	if last := h.runner.LastCheck(); !last.IsZero() {
		out["last_check"] = last
	}
	return out
}

func (h *CheckHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

func (h *CheckHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	h.runner.Foreground()
	h.logLifecycle(r, "foreground")
	writeJSON(w, http.StatusAccepted, h.status())
}

func (h *CheckHandler) Background(w http.ResponseWriter, r *http.Request) {
	h.runner.Background()
	h.logLifecycle(r, "background")
	writeJSON(w, http.StatusAccepted, h.status())
}

func (h *CheckHandler) logLifecycle(r *http.Request, state string) {
	subject, _ := authz.SubjectFromRequest(r)
	h.logger.Debug().Str("subject", subject).Str("state", state).Msg("client lifecycle changed")
}

// Force runs a check immediately. ?email=true also sends the digests outside
// the evening window.
func (h *CheckHandler) Force(w http.ResponseWriter, r *http.Request) {
	forceEmail := false
	if raw := r.URL.Query().Get("email"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid email flag", http.StatusBadRequest)
			return
		}
		forceEmail = parsed
	}

	subject, _ := authz.SubjectFromRequest(r)
	h.logger.Info().Str("subject", subject).Bool("force_email", forceEmail).Msg("manual check requested")
	report, err := h.runner.ForceCheck(r.Context(), forceEmail)
	if err != nil {
		if errors.Is(err, worker.ErrCheckInFlight) {
			http.Error(w, "A check is already running", http.StatusConflict)
			return
		}
		writeError(w, h.logger, err, "Failed to run check")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
