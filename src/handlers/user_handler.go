package handlers

import (
	"net/http"

	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"
	"finanzas-server/src/util"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func GetUser(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := sqldb.GetUserByID(r.Context(), q, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			writeAppError(w, r, err, "failed to get user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func UpdateUser(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var req struct {
			Email     string `json:"email"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.Email != "" && !util.ValidateEmail(req.Email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}

		user, err := sqldb.UpdateUserProfile(r.Context(), q, userID, req.FirstName, req.LastName, req.Email)
		if err != nil {
			writeAppError(w, r, err, "failed to update user profile")
			return
		}
		logger.FromContext(r.Context()).Info().Str("user_id", userID).Msg("user profile updated")
		writeJSON(w, http.StatusOK, user)
	}
}

func ChangePassword(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var req struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		user, err := sqldb.GetUserByID(r.Context(), q, userID)
		if err != nil {
			writeAppError(w, r, err, "failed to get user for password change")
			return
		}
		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.CurrentPassword)); err != nil {
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		if !util.ValidatePassword(req.NewPassword) {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters with uppercase, lowercase, digit, and special character")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			writeAppError(w, r, err, "failed to hash password")
			return
		}
		if err := sqldb.UpdateUserPassword(r.Context(), q, userID, hashedPassword); err != nil {
			writeAppError(w, r, err, "failed to update password")
			return
		}

		logger.FromContext(r.Context()).Info().Str("user_id", userID).Msg("user password changed")
		writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
	}
}

// DeleteUser removes the caller and, through cascading keys, all their data.
func DeleteUser(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if err := sqldb.DeleteUser(r.Context(), q, userID); err != nil {
			writeAppError(w, r, err, "failed to delete user")
			return
		}
		logger.FromContext(r.Context()).Info().Str("user_id", userID).Msg("user deleted")
		writeJSON(w, http.StatusOK, map[string]string{
			"message":  "user deleted",
			"redirect": "/register",
		})
	}
}

func GetAllUsers(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := sqldb.ListUsers(r.Context(), q)
		if err != nil {
			writeAppError(w, r, err, "failed to list users")
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func setUserLocked(q sqldb.Querier, locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "user_id")
		if err := sqldb.SetUserLocked(r.Context(), q, target, locked); err != nil {
			writeAppError(w, r, err, "failed to change user lock")
			return
		}
		logger.FromContext(r.Context()).Info().
			Str("admin_id", middleware.UserIDFromContext(r.Context())).
			Str("user_id", target).
			Bool("locked", locked).
			Msg("user lock changed")
		w.WriteHeader(http.StatusNoContent)
	}
}

func LockUser(q sqldb.Querier) http.HandlerFunc   { return setUserLocked(q, true) }
func UnlockUser(q sqldb.Querier) http.HandlerFunc { return setUserLocked(q, false) }
