package handlers

import (
	"net/http"
	"strings"

	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/middleware"
	"finanzas-server/src/models"
	"finanzas-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func CreateContact(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		var req models.UpdateContactRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.Email != "" && !util.ValidateEmail(req.Email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		created, err := sqldb.CreateContact(r.Context(), q, &models.Contact{
			ID:     uuid.NewString(),
			UserID: userID,
			Name:   strings.TrimSpace(req.Name),
			Email:  req.Email,
			Phone:  req.Phone,
			Alias:  req.Alias,
			Notes:  req.Notes,
		})
		if err != nil {
			writeAppError(w, r, err, "failed to create contact")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func ListContacts(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := sqldb.ListContacts(r.Context(), q, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			writeAppError(w, r, err, "failed to list contacts")
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func GetContact(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := sqldb.GetContact(r.Context(), q, middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "contact_id"))
		if err != nil {
			writeAppError(w, r, err, "failed to get contact")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func UpdateContact(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateContactRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if req.Email != "" && !util.ValidateEmail(req.Email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		c, err := sqldb.UpdateContact(r.Context(), q, middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "contact_id"), req)
		if err != nil {
			writeAppError(w, r, err, "failed to update contact")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func DeleteContact(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sqldb.DeleteContact(r.Context(), q, middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "contact_id")); err != nil {
			writeAppError(w, r, err, "failed to delete contact")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
