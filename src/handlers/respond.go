package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"
)

const internalError = "Internal server error"

var (
	writeJSON  = middleware.WriteJSON
	writeError = middleware.WriteError
)

// writeAppError maps an error kind onto a status. Unclassified failures are
// logged and hidden behind a generic 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, apperr.Message(err))
	case apperr.KindAuthorization:
		writeError(w, http.StatusUnauthorized, apperr.Message(err))
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, apperr.Message(err))
	case apperr.KindConflict:
		writeError(w, http.StatusConflict, apperr.Message(err))
	default:
		logger.FromContext(r.Context()).Error().
			Err(err).
			Str("user_id", middleware.UserIDFromContext(r.Context())).
			Msg(msg)
		writeError(w, http.StatusInternalServerError, internalError)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q", s)
	}
	return t, nil
}
