package handlers

import (
	"net/http"
	"strings"

	"finanzas-server/src/apperr"
	"finanzas-server/src/db"
	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"
	"finanzas-server/src/models"
	"finanzas-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func accountRef(r *http.Request) (models.AccountRef, error) {
	kind, ok := models.ParseAccountKind(chi.URLParam(r, "kind"))
	if !ok {
		return models.AccountRef{}, apperr.Validation("unknown account kind %q", chi.URLParam(r, "kind"))
	}
	return models.AccountRef{Kind: kind, ID: chi.URLParam(r, "account_id")}, nil
}

func CreateAccount(q sqldb.Querier, cache *db.Cache, baseCurrency string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}

		var req struct {
			Name        string           `json:"name"`
			Institution string           `json:"institution"`
			Number      string           `json:"number"`
			Currency    string           `json:"currency"`
			Balance     *decimal.Decimal `json:"balance"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		currency := util.NormalizeCurrency(req.Currency)
		if currency == "" {
			currency = baseCurrency
		}
		if !util.ValidateCurrency(currency) {
			writeError(w, http.StatusBadRequest, "invalid currency")
			return
		}
		balance := decimal.Zero
		if req.Balance != nil {
			balance = *req.Balance
		}
		if !util.ValidateMoneyScale(balance) {
			writeError(w, http.StatusBadRequest, "balance supports at most 4 decimal places")
			return
		}

		created, err := sqldb.CreateAccount(r.Context(), q, &models.Account{
			ID:          uuid.NewString(),
			UserID:      userID,
			Kind:        ref.Kind,
			Name:        strings.TrimSpace(req.Name),
			Institution: req.Institution,
			Number:      req.Number,
			Currency:    currency,
			Balance:     balance,
		})
		if err != nil {
			writeAppError(w, r, err, "failed to create account")
			return
		}
		cache.ClearUser(userID, db.AccountCache, db.DashboardCache)
		logger.FromContext(r.Context()).Info().Str("user_id", userID).Str("account", created.Ref().String()).Msg("account created")
		writeJSON(w, http.StatusCreated, created)
	}
}

// ListAccounts serves one namespace from the read cache when possible.
func ListAccounts(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}

		key := db.Key(db.AccountCache, userID, string(ref.Kind))
		if cached, found := cache.Get(key); found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		accounts, err := sqldb.ListAccounts(r.Context(), q, userID, ref.Kind)
		if err != nil {
			writeAppError(w, r, err, "failed to list accounts")
			return
		}
		cache.Set(db.AccountCache, key, accounts)
		writeJSON(w, http.StatusOK, accounts)
	}
}

func GetAccount(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}
		a, err := sqldb.GetAccount(r.Context(), q, userID, ref)
		if err != nil {
			writeAppError(w, r, err, "failed to get account")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func UpdateAccount(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}
		var req models.UpdateAccountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		a, err := sqldb.UpdateAccountMetadata(r.Context(), q, userID, ref, req)
		if err != nil {
			writeAppError(w, r, err, "failed to update account")
			return
		}
		cache.ClearUser(userID, db.AccountCache, db.DashboardCache)
		writeJSON(w, http.StatusOK, a)
	}
}

// SetAccountBalance is the administrative correction path; it moves the
// balance without a transaction.
func SetAccountBalance(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}
		var req struct {
			Balance *decimal.Decimal `json:"balance"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if req.Balance == nil {
			writeError(w, http.StatusBadRequest, "balance is required")
			return
		}
		if !util.ValidateMoneyScale(*req.Balance) {
			writeError(w, http.StatusBadRequest, "balance supports at most 4 decimal places")
			return
		}
		a, err := sqldb.SetAccountBalance(r.Context(), q, userID, ref, *req.Balance)
		if err != nil {
			writeAppError(w, r, err, "failed to set account balance")
			return
		}
		cache.ClearUser(userID, db.AccountCache, db.DashboardCache)
		logger.FromContext(r.Context()).Info().
			Str("user_id", userID).
			Str("account", ref.String()).
			Str("balance", a.Balance.String()).
			Msg("account balance set")
		writeJSON(w, http.StatusOK, a)
	}
}

func DeleteAccount(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		ref, err := accountRef(r)
		if err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if err := sqldb.DeleteAccount(r.Context(), q, userID, ref); err != nil {
			writeAppError(w, r, err, "failed to delete account")
			return
		}
		cache.ClearUser(userID, db.AccountCache, db.DashboardCache)
		w.WriteHeader(http.StatusNoContent)
	}
}
