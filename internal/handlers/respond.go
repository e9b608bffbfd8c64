package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps service errors onto status codes and logs the unexpected ones.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, fleet.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fleet.ErrMeterRegression):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
