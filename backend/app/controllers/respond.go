package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetguard/backend/app/services"
	"fleetguard/backend/global"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP status codes.
// Anything unrecognized is a store failure and reported as 500; the agent
// retries on its own poll cadence, there is no server-side retry.
func writeError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, services.ErrIdentityMismatch):
		code = http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyPending), errors.Is(err, services.ErrNoQueuedCommand):
		code = http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrMissingField),
		errors.Is(err, services.ErrInvalidKind),
		errors.Is(err, services.ErrPortNotAllowed):
		code = http.StatusBadRequest
	default:
		code = http.StatusInternalServerError
		global.Logger.Error().Err(err).Msg("internal error")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
