package memory

import (
	"context"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/shopspring/decimal"
)

// unitOfWork operates on whichever data it is given: a private copy inside
// WithinTx, or the live data for locked single reads.
type unitOfWork struct {
	d *data
}

func (u *unitOfWork) InsertTransaction(_ context.Context, t *models.Transaction) error {
	if _, ok := u.d.transactions[t.ID]; ok {
		return apperr.Conflict("transaction already exists", nil)
	}
	if t.IdempotencyScope != "" {
		for _, existing := range u.d.transactions {
			if existing.UserID == t.UserID && existing.IdempotencyScope == t.IdempotencyScope {
				return apperr.Conflict("transaction already exists", nil)
			}
		}
	}
	u.d.transactions[t.ID] = *t
	return nil
}

func (u *unitOfWork) GetTransaction(_ context.Context, userID, id string) (*models.Transaction, error) {
	t, ok := u.d.transactions[id]
	if !ok || t.UserID != userID {
		return nil, apperr.NotFound("transaction")
	}
	return &t, nil
}

func (u *unitOfWork) DeleteTransaction(_ context.Context, userID, id string) error {
	t, ok := u.d.transactions[id]
	if !ok || t.UserID != userID {
		return apperr.NotFound("transaction")
	}
	delete(u.d.transactions, id)
	return nil
}

func (u *unitOfWork) FindTransactionByScope(_ context.Context, userID, scope string) (*models.Transaction, error) {
	for _, t := range u.d.transactions {
		if t.UserID == userID && t.IdempotencyScope == scope {
			return &t, nil
		}
	}
	return nil, apperr.NotFound("transaction")
}

func (u *unitOfWork) AdjustAccountBalance(_ context.Context, userID string, ref models.AccountRef, delta decimal.Decimal) (bool, error) {
	a, ok := u.d.accounts[ref]
	if !ok || a.UserID != userID {
		return false, nil
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	u.d.accounts[ref] = a
	return true, nil
}

func (u *unitOfWork) AdjustGoalProgress(_ context.Context, userID, goalID string, delta decimal.Decimal) (bool, error) {
	g, ok := u.d.goals[goalID]
	if !ok || g.UserID != userID {
		return false, nil
	}
	g.CurrentAmount = g.CurrentAmount.Add(delta)
	g.UpdatedAt = time.Now().UTC()
	u.d.goals[goalID] = g
	return true, nil
}

func (u *unitOfWork) GetAccount(_ context.Context, userID string, ref models.AccountRef) (*models.Account, error) {
	a, ok := u.d.accounts[ref]
	if !ok || a.UserID != userID {
		return nil, apperr.NotFound(string(ref.Kind))
	}
	return &a, nil
}

// ListAccounts lists every namespace when kind is empty.
func (u *unitOfWork) ListAccounts(_ context.Context, userID string, kind models.AccountKind) ([]models.Account, error) {
	accounts := []models.Account{}
	for _, a := range u.d.accounts {
		if a.UserID == userID && (kind == "" || a.Kind == kind) {
			accounts = append(accounts, a)
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}
