package handlers

import (
	"net/http"
	"strings"
	"time"

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

func CreateGoal(q sqldb.Querier, cache *db.Cache, baseCurrency string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		var req struct {
			Name         string           `json:"name"`
			TargetAmount *decimal.Decimal `json:"targetAmount"`
			Currency     string           `json:"currency"`
			Deadline     *time.Time       `json:"deadline"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.TargetAmount == nil || !req.TargetAmount.IsPositive() {
			writeError(w, http.StatusBadRequest, "targetAmount must be greater than zero")
			return
		}
		if !util.ValidateMoneyScale(*req.TargetAmount) {
			writeError(w, http.StatusBadRequest, "targetAmount supports at most 4 decimal places")
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

		created, err := sqldb.CreateGoal(r.Context(), q, &models.SavingsGoal{
			ID:           uuid.NewString(),
			UserID:       userID,
			Name:         strings.TrimSpace(req.Name),
			TargetAmount: *req.TargetAmount,
			Currency:     currency,
			Status:       models.GoalActive,
			Deadline:     req.Deadline,
		})
		if err != nil {
			writeAppError(w, r, err, "failed to create savings goal")
			return
		}
		cache.ClearUser(userID, db.DashboardCache)
		logger.FromContext(r.Context()).Info().Str("user_id", userID).Str("goal_id", created.ID).Msg("savings goal created")
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetGoal(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		g, err := sqldb.GetGoal(r.Context(), q, userID, chi.URLParam(r, "goal_id"))
		if err != nil {
			writeAppError(w, r, err, "failed to get savings goal")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func ListGoals(q sqldb.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		status := models.GoalStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		goals, err := sqldb.ListGoals(r.Context(), q, userID, status)
		if err != nil {
			writeAppError(w, r, err, "failed to list savings goals")
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

// UpdateGoal edits name, target, status and deadline. Progress only moves
// through saving transactions.
func UpdateGoal(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		var req models.UpdateGoalRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		if req.Status != "" && !req.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if req.TargetAmount != nil && (!req.TargetAmount.IsPositive() || !util.ValidateMoneyScale(*req.TargetAmount)) {
			writeError(w, http.StatusBadRequest, "targetAmount must be greater than zero with at most 4 decimal places")
			return
		}
		g, err := sqldb.UpdateGoal(r.Context(), q, userID, chi.URLParam(r, "goal_id"), req)
		if err != nil {
			writeAppError(w, r, err, "failed to update savings goal")
			return
		}
		cache.ClearUser(userID, db.DashboardCache)
		writeJSON(w, http.StatusOK, g)
	}
}

func DeleteGoal(q sqldb.Querier, cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if err := sqldb.DeleteGoal(r.Context(), q, userID, chi.URLParam(r, "goal_id")); err != nil {
			writeAppError(w, r, err, "failed to delete savings goal")
			return
		}
		cache.ClearUser(userID, db.DashboardCache)
		w.WriteHeader(http.StatusNoContent)
	}
}
