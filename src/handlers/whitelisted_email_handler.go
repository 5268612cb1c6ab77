package handlers

import (
	"net/http"
	"strings"

	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/logger"
	"finanzas-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func CreateWhitelistedEmail(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !util.ValidateEmail(strings.TrimSpace(req.Email)) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}

		email, err := sqldb.CreateWhitelistedEmail(r.Context(), q, uuid.NewString(), strings.TrimSpace(req.Email))
		if err != nil {
			writeAppError(w, r, err, "failed to create whitelisted email")
			return
		}
		logger.FromContext(r.Context()).Info().Str("email", email.Email).Str("id", email.ID).Msg("whitelisted email created")
		writeJSON(w, http.StatusCreated, email)
	}
}

func GetAllWhitelistedEmails(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emails, err := sqldb.GetAllWhitelistedEmails(r.Context(), q)
		if err != nil {
			writeAppError(w, r, err, "failed to get whitelisted emails")
			return
		}
		writeJSON(w, http.StatusOK, emails)
	}
}

func DeleteWhitelistedEmail(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "email_id")
		if err := sqldb.DeleteWhitelistedEmail(r.Context(), q, id); err != nil {
			writeAppError(w, r, err, "failed to delete whitelisted email")
			return
		}
		logger.FromContext(r.Context()).Info().Str("id", id).Msg("whitelisted email deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
