// Package reconciler keeps account balances and savings-goal progress in step
// with the transactions that move them. Every mutation happens through a
// UnitOfWork, so a transaction row and its side effects commit or roll back
// together.
package reconciler

import (
	"context"
	"fmt"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/shopspring/decimal"
)

// UnitOfWork is the transactional view of storage the reconciler mutates.
// Adjust* report false when the referenced row does not exist for the user.
type UnitOfWork interface {
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	AdjustAccountBalance(ctx context.Context, userID string, ref models.AccountRef, delta decimal.Decimal) (bool, error)
	AdjustGoalProgress(ctx context.Context, userID, goalID string, delta decimal.Decimal) (bool, error)
}

type DeltaTarget int

const (
	TargetAccount DeltaTarget = iota
	TargetGoal
)

// Delta is a signed change to one account balance or one goal's current amount.
type Delta struct {
	Target  DeltaTarget
	Account models.AccountRef
	GoalID  string
	Amount  decimal.Decimal
}

func (d Delta) String() string {
	if d.Target == TargetGoal {
		return fmt.Sprintf("goal:%s %s", d.GoalID, d.Amount.String())
	}
	return fmt.Sprintf("%s %s", d.Account.String(), d.Amount.String())
}

// CreateDeltas lists the changes creating t applies: the source is debited, the
// destination credited and, for saving transactions, the goal advanced.
func CreateDeltas(t *models.Transaction) []Delta {
	var deltas []Delta
	if !t.From.IsZero() {
		deltas = append(deltas, Delta{Target: TargetAccount, Account: t.From, Amount: t.Amount.Neg()})
	}
	if !t.To.IsZero() {
		deltas = append(deltas, Delta{Target: TargetAccount, Account: t.To, Amount: t.Amount})
	}
	if t.GoalID != "" && t.Type == models.TypeSaving {
		deltas = append(deltas, Delta{Target: TargetGoal, GoalID: t.GoalID, Amount: t.Amount})
	}
	return deltas
}

// DeleteDeltas is the exact inverse of CreateDeltas.
func DeleteDeltas(t *models.Transaction) []Delta {
	deltas := CreateDeltas(t)
	for i := range deltas {
		deltas[i].Amount = deltas[i].Amount.Neg()
	}
	return deltas
}

// Apply runs deltas against uow. Unresolvable legs are optional by nature
// (cash has no paired account) and are skipped. It returns the deltas that
// found a row.
func Apply(ctx context.Context, uow UnitOfWork, userID string, deltas []Delta) ([]Delta, error) {
	applied := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		var (
			found bool
			err   error
		)
		switch d.Target {
		case TargetAccount:
			found, err = uow.AdjustAccountBalance(ctx, userID, d.Account, d.Amount)
		case TargetGoal:
			found, err = uow.AdjustGoalProgress(ctx, userID, d.GoalID, d.Amount)
		}
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", d, err)
		}
		if found {
			applied = append(applied, d)
		}
	}
	return applied, nil
}

// ApplyCreate persists t and applies its deltas. It must run inside a single
// unit of work; any error leaves the caller responsible for rolling it back.
func ApplyCreate(ctx context.Context, uow UnitOfWork, t *models.Transaction) ([]Delta, error) {
	if !t.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if err := uow.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	return Apply(ctx, uow, t.UserID, CreateDeltas(t))
}

// ApplyDelete loads the transaction, reverses its deltas and removes the row.
// A missing transaction is reported as NotFound before anything is mutated.
func ApplyDelete(ctx context.Context, uow UnitOfWork, userID, id string) (*models.Transaction, []Delta, error) {
	t, err := uow.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	applied, err := Apply(ctx, uow, userID, DeleteDeltas(t))
	if err != nil {
		return nil, nil, err
	}
	if err := uow.DeleteTransaction(ctx, userID, id); err != nil {
		return nil, nil, err
	}
	return t, applied, nil
}
