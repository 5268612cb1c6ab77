package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas-server/src/db/memory"
	"finanzas-server/src/handlers"
	"finanzas-server/src/middleware"
	"finanzas-server/src/models"
	"finanzas-server/src/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// asUser stands in for JWTAuthMiddleware.
func asUser(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id != "" {
				r = r.WithContext(middleware.WithUser(r.Context(), models.User{ID: id, Username: id}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTransactionRouter(t *testing.T, userID string) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.PutAccount(models.Account{ID: "A", UserID: "u1", Kind: models.AccountKindGeneric, Name: "checking", Currency: "ARS", Balance: decimal.NewFromInt(500)})
	store.PutAccount(models.Account{ID: "B", UserID: "u1", Kind: models.AccountKindGeneric, Name: "savings", Currency: "ARS", Balance: decimal.NewFromInt(200)})
	svc := service.NewTransactionService(store, service.WithBaseCurrency("ARS"))

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Post("/transactions", handlers.CreateTransaction(svc))
	r.Get("/transactions", handlers.ListTransactions(svc))
	r.Get("/transactions/{transaction_id}", handlers.GetTransaction(svc))
	r.Delete("/transactions/{transaction_id}", handlers.DeleteTransaction(svc))
	r.Post("/transactions/classify", handlers.ClassifyTransaction(svc))
	r.Get("/transactions/suspicious-check", handlers.SuspiciousCheck(svc))
	return r, store
}

const transferBody = `{"fromAccountId":"A","toAccountId":"B","type":"transfer_own_accounts","category":"transfer","amount":"100","description":"move","date":"2024-06-01"}`

func do(h http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(handlers.IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestCreateTransactionHandler(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		key        string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "created", userID: "u1", key: "k1", body: transferBody, wantStatus: http.StatusCreated},
		{name: "missing key", userID: "u1", body: transferBody, wantStatus: http.StatusBadRequest, wantError: "Idempotency-Key header required"},
		{name: "unauthenticated", key: "k1", body: transferBody, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", userID: "u1", key: "k1", body: `{"amount":`, wantStatus: http.StatusBadRequest},
		{name: "missing amount", userID: "u1", key: "k1", body: `{"type":"expense","category":"food","description":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "too many decimals", userID: "u1", key: "k1", body: `{"type":"expense","category":"food","amount":"0.00005","description":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "negative amount", userID: "u1", key: "k1", body: `{"type":"expense","category":"food","amount":"-1","description":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "bad date", userID: "u1", key: "k1", body: `{"type":"expense","category":"food","amount":"1","description":"x","date":"yesterday"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTransactionRouter(t, tt.userID)
			rec := do(h, http.MethodPost, "/transactions", tt.key, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantError != "" {
				if got := errorMessage(t, rec); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
			if tt.wantStatus == http.StatusCreated {
				if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
					t.Errorf("body = %s, want {\"ok\":true}", rec.Body.String())
				}
				if n := store.TransactionCount(); n != 1 {
					t.Errorf("stored %d transactions, want 1", n)
				}
			} else if n := store.TransactionCount(); n != 0 {
				t.Errorf("rejected request stored %d transactions", n)
			}
		})
	}
}

func TestCreateTransactionHandlerReplay(t *testing.T) {
	h, store := newTransactionRouter(t, "u1")
	for i := 0; i < 3; i++ {
		if rec := do(h, http.MethodPost, "/transactions", "same-key", transferBody); rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status = %d, body %s", i, rec.Code, rec.Body.String())
		}
	}
	if n := store.TransactionCount(); n != 1 {
		t.Errorf("stored %d transactions, want 1", n)
	}
	a, _ := store.Account(models.GenericRef("A"))
	if !a.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400", a.Balance)
	}
}

func TestCreateTransactionHandlerKeyReuse(t *testing.T) {
	h, store := newTransactionRouter(t, "u1")
	if rec := do(h, http.MethodPost, "/transactions", "same-key", transferBody); rec.Code != http.StatusCreated {
		t.Fatalf("first: status = %d, body %s", rec.Code, rec.Body.String())
	}
	changed := strings.Replace(transferBody, `"amount":"100"`, `"amount":"101"`, 1)
	rec := do(h, http.MethodPost, "/transactions", "same-key", changed)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reuse: status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	if n := store.TransactionCount(); n != 1 {
		t.Errorf("stored %d transactions, want 1", n)
	}
	a, _ := store.Account(models.GenericRef("A"))
	if !a.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400", a.Balance)
	}
}

func TestTransactionHandlerListGetDelete(t *testing.T) {
	h, store := newTransactionRouter(t, "u1")
	if rec := do(h, http.MethodPost, "/transactions", "k1", transferBody); rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec := do(h, http.MethodGet, "/transactions?limit=10", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var listed []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d transactions, want 1", len(listed))
	}
	id := listed[0].ID

	if rec := do(h, http.MethodGet, "/transactions/"+id, "", ""); rec.Code != http.StatusOK {
		t.Errorf("get: status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/transactions?limit=abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}
	if rec := do(h, http.MethodDelete, "/transactions/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown: status = %d, want 404", rec.Code)
	}
	if rec := do(h, http.MethodDelete, "/transactions/"+id, "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", rec.Code)
	}
	a, _ := store.Account(models.GenericRef("A"))
	if !a.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("A after delete = %s, want 500", a.Balance)
	}
	if rec := do(h, http.MethodGet, "/transactions/"+id, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: status = %d, want 404", rec.Code)
	}
}

func TestClassifyAndSuspiciousHandlers(t *testing.T) {
	h, _ := newTransactionRouter(t, "u1")

	rec := do(h, http.MethodPost, "/transactions/classify", "", `{"fromAccountId":"A","toAccountId":"B","amount":"10","description":"x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("classify: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode classify: %v", err)
	}
	if res["type"] != string(models.TypeTransferOwnAccounts) {
		t.Errorf("type = %v, want %s", res["type"], models.TypeTransferOwnAccounts)
	}

	if rec := do(h, http.MethodGet, "/transactions/suspicious-check?amount=50", "", ""); rec.Code != http.StatusOK {
		t.Errorf("suspicious: status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/transactions/suspicious-check?amount=lots", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("suspicious bad amount: status = %d, want 400", rec.Code)
	}
}
