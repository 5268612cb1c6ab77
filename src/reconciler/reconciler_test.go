package reconciler

import (
	"context"
	"errors"
	"testing"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"

	"github.com/shopspring/decimal"
)

// fakeUnitOfWork keeps rows in maps and can be told to fail on goal updates.
type fakeUnitOfWork struct {
	balances     map[models.AccountRef]decimal.Decimal
	goals        map[string]decimal.Decimal
	transactions map[string]*models.Transaction
	failGoal     bool
}

func newFake() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		balances:     map[models.AccountRef]decimal.Decimal{},
		goals:        map[string]decimal.Decimal{},
		transactions: map[string]*models.Transaction{},
	}
}

func (f *fakeUnitOfWork) InsertTransaction(_ context.Context, t *models.Transaction) error {
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeUnitOfWork) GetTransaction(_ context.Context, _, id string) (*models.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return nil, apperr.NotFound("transaction")
	}
	return t, nil
}

func (f *fakeUnitOfWork) DeleteTransaction(_ context.Context, _, id string) error {
	delete(f.transactions, id)
	return nil
}

func (f *fakeUnitOfWork) AdjustAccountBalance(_ context.Context, _ string, ref models.AccountRef, delta decimal.Decimal) (bool, error) {
	b, ok := f.balances[ref]
	if !ok {
		return false, nil
	}
	f.balances[ref] = b.Add(delta)
	return true, nil
}

func (f *fakeUnitOfWork) AdjustGoalProgress(_ context.Context, _, goalID string, delta decimal.Decimal) (bool, error) {
	if f.failGoal {
		return false, errors.New("disk full")
	}
	g, ok := f.goals[goalID]
	if !ok {
		return false, nil
	}
	f.goals[goalID] = g.Add(delta)
	return true, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertBalance(t *testing.T, f *fakeUnitOfWork, ref models.AccountRef, want string) {
	t.Helper()
	if got := f.balances[ref]; !got.Equal(dec(want)) {
		t.Errorf("balance of %s = %s, want %s", ref, got, want)
	}
}

func TestCreateDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	a, b := models.GenericRef("A"), models.GenericRef("B")
	f.balances[a] = dec("500")
	f.balances[b] = dec("200")

	tx := &models.Transaction{ID: "t1", UserID: "u1", Type: models.TypeTransferOwnAccounts, Amount: dec("100"), From: a, To: b}
	applied, err := ApplyCreate(ctx, f, tx)
	if err != nil {
		t.Fatalf("ApplyCreate: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied %d deltas, want 2", len(applied))
	}
	assertBalance(t, f, a, "400")
	assertBalance(t, f, b, "300")

	deleted, _, err := ApplyDelete(ctx, f, "u1", "t1")
	if err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	if deleted.ID != "t1" {
		t.Errorf("deleted %s, want t1", deleted.ID)
	}
	assertBalance(t, f, a, "500")
	assertBalance(t, f, b, "200")
	if _, ok := f.transactions["t1"]; ok {
		t.Error("transaction row still present after delete")
	}
}

func TestSavingGoalAccumulation(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.goals["G"] = dec("100")

	tx := &models.Transaction{ID: "t1", UserID: "u1", Type: models.TypeSaving, Amount: dec("50"), GoalID: "G"}
	if _, err := ApplyCreate(ctx, f, tx); err != nil {
		t.Fatalf("ApplyCreate: %v", err)
	}
	if got := f.goals["G"]; !got.Equal(dec("150")) {
		t.Errorf("goal = %s, want 150", got)
	}
	if _, _, err := ApplyDelete(ctx, f, "u1", "t1"); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}
	if got := f.goals["G"]; !got.Equal(dec("100")) {
		t.Errorf("goal = %s, want 100", got)
	}
}

func TestGoalIgnoredForOtherTypes(t *testing.T) {
	tx := &models.Transaction{Type: models.TypeExpense, Amount: dec("10"), GoalID: "G"}
	if deltas := CreateDeltas(tx); len(deltas) != 0 {
		t.Errorf("expense with goal produced deltas %v", deltas)
	}
}

func TestMissingLegsAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	a := models.BankRef("b1")
	f.balances[a] = dec("50")

	tx := &models.Transaction{
		ID: "t1", UserID: "u1", Type: models.TypeSaving, Amount: dec("20"),
		From: a, To: models.WalletRef("gone"), GoalID: "missing",
	}
	applied, err := ApplyCreate(ctx, f, tx)
	if err != nil {
		t.Fatalf("ApplyCreate: %v", err)
	}
	if len(applied) != 1 || applied[0].Account != a {
		t.Errorf("applied = %v, want only the bank debit", applied)
	}
	assertBalance(t, f, a, "30")
}

func TestDeleteDeltasInvertCreate(t *testing.T) {
	tx := &models.Transaction{
		Type: models.TypeSaving, Amount: dec("12.34"),
		From: models.GenericRef("A"), To: models.WalletRef("W"), GoalID: "G",
	}
	create, del := CreateDeltas(tx), DeleteDeltas(tx)
	if len(create) != 3 || len(del) != 3 {
		t.Fatalf("got %d create and %d delete deltas, want 3 each", len(create), len(del))
	}
	for i := range create {
		if !create[i].Amount.Add(del[i].Amount).IsZero() {
			t.Errorf("delta %d: %s + %s != 0", i, create[i].Amount, del[i].Amount)
		}
	}
}

func TestApplyCreateRejectsNonPositive(t *testing.T) {
	f := newFake()
	for _, a := range []string{"0", "-5"} {
		_, err := ApplyCreate(context.Background(), f, &models.Transaction{ID: "t", Amount: dec(a)})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("amount %s: err = %v, want validation", a, err)
		}
	}
	if len(f.transactions) != 0 {
		t.Error("rejected transaction was inserted")
	}
}

func TestApplyDeleteNotFound(t *testing.T) {
	f := newFake()
	f.balances[models.GenericRef("A")] = dec("10")
	_, _, err := ApplyDelete(context.Background(), f, "u1", "nope")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
	assertBalance(t, f, models.GenericRef("A"), "10")
}

func TestApplyPropagatesStorageFailure(t *testing.T) {
	f := newFake()
	f.goals["G"] = dec("0")
	f.failGoal = true
	tx := &models.Transaction{ID: "t1", UserID: "u1", Type: models.TypeSaving, Amount: dec("5"), GoalID: "G"}
	if _, err := ApplyCreate(context.Background(), f, tx); err == nil {
		t.Fatal("expected error from failing goal update")
	}
}
