package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/middleware"
	"finanzas-server/src/models"
	"finanzas-server/src/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type createTransactionRequest struct {
	service.Endpoints
	Type              string           `json:"type"`
	Category          string           `json:"category"`
	Amount            *decimal.Decimal `json:"amount"`
	Description       string           `json:"description"`
	Date              string           `json:"date"`
	Currency          string           `json:"currency"`
	ContactID         string           `json:"contactId"`
	GoalID            string           `json:"goalId"`
	PaymentMethod     string           `json:"paymentMethod"`
	TransferRecipient string           `json:"transferRecipient"`
	TransferSender    string           `json:"transferSender"`
}

// CreateTransaction requires an Idempotency-Key header. Retries with the same
// key and body answer 201 again without writing anything.
func CreateTransaction(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			writeAppError(w, r, apperr.ErrUnauthenticated, "")
			return
		}

		key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if key == "" {
			writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}

		var req createTransactionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}

		date := time.Now().UTC()
		if strings.TrimSpace(req.Date) != "" {
			parsed, err := parseTime(req.Date)
			if err != nil {
				writeAppError(w, r, err, "")
				return
			}
			date = parsed
		}
		currency := req.Currency
		if strings.TrimSpace(currency) == "" {
			currency = svc.BaseCurrency()
		}

		_, err := svc.Create(r.Context(), userID, key, service.CreateTransactionInput{
			Endpoints:         req.Endpoints,
			Type:              req.Type,
			Category:          req.Category,
			Amount:            req.Amount,
			Description:       req.Description,
			Date:              &date,
			Currency:          currency,
			ContactID:         req.ContactID,
			GoalID:            req.GoalID,
			PaymentMethod:     req.PaymentMethod,
			TransferRecipient: req.TransferRecipient,
			TransferSender:    req.TransferSender,
		})
		if err != nil {
			writeAppError(w, r, err, "failed to create transaction")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	}
}

func ListTransactions(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		q := r.URL.Query()

		filter := models.TransactionFilter{Type: models.TransactionType(q.Get("type"))}
		for _, p := range []struct {
			name string
			dst  **time.Time
		}{{"from", &filter.From}, {"to", &filter.To}} {
			if v := q.Get(p.name); v != "" {
				t, err := parseTime(v)
				if err != nil {
					writeAppError(w, r, err, "")
					return
				}
				*p.dst = &t
			}
		}
		if v := q.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = limit
		}

		txs, err := svc.List(r.Context(), userID, filter)
		if err != nil {
			writeAppError(w, r, err, "failed to list transactions")
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func GetTransaction(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		t, err := svc.Get(r.Context(), userID, chi.URLParam(r, "transaction_id"))
		if err != nil {
			writeAppError(w, r, err, "failed to get transaction")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// DeleteTransaction reverses the transaction's balance effects before
// removing it.
func DeleteTransaction(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if _, err := svc.Delete(r.Context(), userID, chi.URLParam(r, "transaction_id")); err != nil {
			writeAppError(w, r, err, "failed to delete transaction")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ClassifyTransaction(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		var req service.ClassifyInput
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err, "")
			return
		}
		res, err := svc.Classify(r.Context(), userID, req)
		if err != nil {
			writeAppError(w, r, err, "failed to classify transaction")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func SuspiciousCheck(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		report, err := svc.SuspiciousCheck(r.Context(), userID, amount)
		if err != nil {
			writeAppError(w, r, err, "failed to check transaction")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func GetDashboard(svc *service.TransactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		var from, to time.Time
		for _, p := range []struct {
			name string
			dst  *time.Time
		}{{"from", &from}, {"to", &to}} {
			if v := r.URL.Query().Get(p.name); v != "" {
				t, err := parseTime(v)
				if err != nil {
					writeAppError(w, r, err, "")
					return
				}
				*p.dst = t
			}
		}
		d, err := svc.Dashboard(r.Context(), userID, from, to)
		if err != nil {
			writeAppError(w, r, err, "failed to build dashboard")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
