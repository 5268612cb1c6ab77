package handlers

import (
	"net/http"
	"strings"
	"time"

	"finanzas-server/src/apperr"
	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"
	"finanzas-server/src/models"
	"finanzas-server/src/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
	// RequireAllowlist restricts registration to whitelisted emails.
	RequireAllowlist bool
}

func Register(q sqldb.Querier, auth AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req models.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))

		if !util.ValidateEmail(req.Email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		if !util.ValidateUsername(req.Username) {
			writeError(w, http.StatusBadRequest, "username must be between 3 and 30 characters")
			return
		}
		if !util.ValidatePassword(req.Password) {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters with uppercase, lowercase, digit, and special character")
			return
		}

		if auth.RequireAllowlist {
			allowed, err := sqldb.IsEmailWhitelisted(r.Context(), q, req.Email)
			if err != nil {
				writeAppError(w, r, err, "failed to check whitelisted emails")
				return
			}
			if !allowed {
				log.Warn().Str("email", req.Email).Msg("registration denied for non-whitelisted email")
				writeError(w, http.StatusForbidden, "registration is restricted to invited emails")
				return
			}
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeAppError(w, r, err, "failed to hash password")
			return
		}

		resp, err := sqldb.CreateUser(r.Context(), q, uuid.NewString(), req, hashedPassword)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				writeError(w, http.StatusConflict, "email or username already exists")
				return
			}
			writeAppError(w, r, err, "failed to create user")
			return
		}

		token, err := middleware.NewToken(auth.Secret, auth.TokenTTL, resp.ID, resp.Username, resp.SuperAdmin)
		if err != nil {
			writeAppError(w, r, err, "failed to sign token")
			return
		}

		log.Info().Str("user_id", resp.ID).Str("username", resp.Username).Msg("user registered")
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": token,
			"user":  resp,
		})
	}
}

func Login(q sqldb.Querier, auth AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var credentials struct {
			UsernameOrEmail string `json:"username"`
			Password        string `json:"password"`
		}
		if err := decodeJSON(r, &credentials); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		login := strings.ToLower(strings.TrimSpace(credentials.UsernameOrEmail))
		user, err := sqldb.GetUserByUsername(r.Context(), q, login)
		if apperr.KindOf(err) == apperr.KindNotFound {
			user, err = sqldb.GetUserByEmail(r.Context(), q, login)
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			writeAppError(w, r, err, "failed to load user for login")
			return
		}

		if user.Locked {
			log.Warn().Str("user_id", user.ID).Msg("locked user attempted login")
			writeError(w, http.StatusForbidden, "User account is locked")
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(credentials.Password)); err != nil {
			log.Warn().Str("user_id", user.ID).Str("remote_addr", r.RemoteAddr).Msg("invalid password attempt")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := middleware.NewToken(auth.Secret, auth.TokenTTL, user.ID, user.Username, user.SuperAdmin)
		if err != nil {
			writeAppError(w, r, err, "failed to sign token")
			return
		}

		if err := sqldb.UpdateUserLastLogin(r.Context(), q, user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
		}

		log.Info().Str("user_id", user.ID).Msg("user logged in")
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
