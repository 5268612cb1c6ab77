package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/db"
	"finanzas-server/src/db/memory"
	"finanzas-server/src/events"
	"finanzas-server/src/models"
	"finanzas-server/src/service"

	"github.com/shopspring/decimal"
)

var testDate = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newFixture(t *testing.T) (*service.TransactionService, *memory.Store) {
	t.Helper()
	store := memory.New()
	for _, a := range []models.Account{
		{ID: "A", UserID: "u1", Kind: models.AccountKindGeneric, Name: "checking", Currency: "ARS", Balance: decimal.NewFromInt(500)},
		{ID: "B", UserID: "u1", Kind: models.AccountKindGeneric, Name: "savings", Currency: "ARS", Balance: decimal.NewFromInt(200)},
		{ID: "W", UserID: "u1", Kind: models.AccountKindWallet, Name: "mp", Currency: "ARS", Balance: decimal.NewFromInt(0)},
		{ID: "U", UserID: "u1", Kind: models.AccountKindGeneric, Name: "dollars", Currency: "USD", Balance: decimal.NewFromInt(1000)},
	} {
		store.PutAccount(a)
	}
	store.PutGoal(models.SavingsGoal{ID: "G", UserID: "u1", Name: "trip", Currency: "ARS", Status: models.GoalActive, CurrentAmount: decimal.NewFromInt(100)})
	svc := service.NewTransactionService(store, service.WithBaseCurrency("ARS"), service.WithClock(func() time.Time { return testDate }))
	return svc, store
}

func transferInput() service.CreateTransactionInput {
	date := testDate
	return service.CreateTransactionInput{
		Endpoints:   service.Endpoints{FromAccountID: "A", ToAccountID: "B"},
		Type:        "transfer_own_accounts",
		Category:    "transfer",
		Amount:      dec("100"),
		Description: "move",
		Date:        &date,
	}
}

func balance(t *testing.T, s *memory.Store, ref models.AccountRef) decimal.Decimal {
	t.Helper()
	a, ok := s.Account(ref)
	if !ok {
		t.Fatalf("account %s missing", ref)
	}
	return a.Balance
}

func TestCreateDeleteRestoresBalances(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, "u1", "k1", transferInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Transaction.IsTransferBetweenOwnAccounts {
		t.Error("own-transfer flag not set")
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400", got)
	}
	if got := balance(t, store, models.GenericRef("B")); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("B = %s, want 300", got)
	}

	if _, err := svc.Delete(ctx, "u1", res.Transaction.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("A = %s after delete, want 500", got)
	}
	if got := balance(t, store, models.GenericRef("B")); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("B = %s after delete, want 200", got)
	}
}

func TestSavingAdvancesGoal(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()
	in := transferInput()
	in.Endpoints = service.Endpoints{}
	in.Type = "saving"
	in.Amount = dec("50")
	in.GoalID = "G"

	res, err := svc.Create(ctx, "u1", "k-save", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g, _ := store.Goal("G"); !g.CurrentAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("goal = %s, want 150", g.CurrentAmount)
	}
	if _, err := svc.Delete(ctx, "u1", res.Transaction.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if g, _ := store.Goal("G"); !g.CurrentAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("goal = %s after delete, want 100", g.CurrentAmount)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", "same-key", transferInput())
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := svc.Create(ctx, "u1", "same-key", transferInput())
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if !second.Replayed || second.Transaction.ID != first.Transaction.ID {
		t.Errorf("second create = %+v, want replay of %s", second, first.Transaction.ID)
	}
	if store.TransactionCount() != 1 {
		t.Errorf("stored %d transactions, want 1", store.TransactionCount())
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400 (debited once)", got)
	}
}

func TestCreateReusedKeyWithDifferentRequestConflicts(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "same-key", transferInput()); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	changed := transferInput()
	changed.Amount = dec("101")
	_, err := svc.Create(ctx, "u1", "same-key", changed)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
	if !errors.Is(err, service.ErrIdempotencyKeyReused) {
		t.Errorf("err = %v, want ErrIdempotencyKeyReused", err)
	}
	if store.TransactionCount() != 1 {
		t.Errorf("stored %d transactions, want 1", store.TransactionCount())
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400 (debited once)", got)
	}

	// The original request still replays after the rejected one.
	again, err := svc.Create(ctx, "u1", "same-key", transferInput())
	if err != nil || !again.Replayed {
		t.Fatalf("replay after conflict = %+v, %v", again, err)
	}
}

func TestCreateSmallestAmountRoundTrips(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	in := transferInput()
	in.Amount = dec("0.0001")
	res, err := svc.Create(ctx, "u1", "tiny", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.RequireFromString("499.9999")) {
		t.Errorf("A = %s, want 499.9999", got)
	}
	if _, err := svc.Delete(ctx, "u1", res.Transaction.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("A after delete = %s, want 500", got)
	}
}

func TestCreateConcurrentDuplicatesApplyOnce(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, "u1", "race", transferInput()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Create: %v", err)
	}
	if store.TransactionCount() != 1 {
		t.Errorf("stored %d transactions, want 1", store.TransactionCount())
	}
	if got := balance(t, store, models.GenericRef("B")); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("B = %s, want 300", got)
	}
}

func TestCreateDifferentKeysAreIndependent(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()
	for _, key := range []string{"k1", "k2"} {
		if _, err := svc.Create(ctx, "u1", key, transferInput()); err != nil {
			t.Fatalf("Create %s: %v", key, err)
		}
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("A = %s, want 300", got)
	}
}

func TestCreateChecksAuthBeforeInput(t *testing.T) {
	svc, _ := newFixture(t)
	_, err := svc.Create(context.Background(), "", "k", service.CreateTransactionInput{})
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("err = %v, want authorization", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newFixture(t)
	date := testDate

	tests := []struct {
		name   string
		mutate func(*service.CreateTransactionInput)
	}{
		{"missing type", func(in *service.CreateTransactionInput) { in.Type = "" }},
		{"missing category", func(in *service.CreateTransactionInput) { in.Category = " " }},
		{"missing amount", func(in *service.CreateTransactionInput) { in.Amount = nil }},
		{"missing description", func(in *service.CreateTransactionInput) { in.Description = "" }},
		{"missing date", func(in *service.CreateTransactionInput) { in.Date = nil }},
		{"zero amount", func(in *service.CreateTransactionInput) { in.Amount = dec("0") }},
		{"negative amount", func(in *service.CreateTransactionInput) { in.Amount = dec("-1") }},
		{"amount below storage precision", func(in *service.CreateTransactionInput) { in.Amount = dec("0.00005") }},
		{"amount with five decimals", func(in *service.CreateTransactionInput) { in.Amount = dec("10.12345") }},
		{"unknown type", func(in *service.CreateTransactionInput) { in.Type = "refund" }},
		{"bad currency", func(in *service.CreateTransactionInput) { in.Currency = "PESOS" }},
		{"mixed from side", func(in *service.CreateTransactionInput) { in.FromWalletID = "W" }},
		{"currency mismatch", func(in *service.CreateTransactionInput) { in.Endpoints = service.Endpoints{FromAccountID: "U", ToAccountID: "A"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := transferInput()
			in.Date = &date
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), "u1", "k-"+tt.name, in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
	if store.TransactionCount() != 0 {
		t.Errorf("stored %d transactions, want 0", store.TransactionCount())
	}
	if got := balance(t, store, models.GenericRef("U")); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("U = %s, want 1000", got)
	}
}

func TestCreateAutoTypeAndCategory(t *testing.T) {
	svc, _ := newFixture(t)
	date := testDate
	in := service.CreateTransactionInput{
		Endpoints:     service.Endpoints{FromAccountID: "A"},
		Type:          "auto",
		Category:      "auto",
		Amount:        dec("30"),
		Description:   "ATM",
		Date:          &date,
		PaymentMethod: "cash",
	}
	res, err := svc.Create(context.Background(), "u1", "auto", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Transaction.Type != models.TypeWithdrawal || !res.Transaction.IsCashWithdrawal {
		t.Errorf("got type %s withdrawal=%v", res.Transaction.Type, res.Transaction.IsCashWithdrawal)
	}
	if res.Transaction.Category != "other" {
		t.Errorf("category = %q, want other", res.Transaction.Category)
	}
}

func TestCreateExplicitTypeKeepsFlagsConsistent(t *testing.T) {
	svc, _ := newFixture(t)
	in := transferInput()
	in.Type = "expense"
	res, err := svc.Create(context.Background(), "u1", "explicit", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tx := res.Transaction
	if tx.Type != models.TypeExpense || tx.IsTransferBetweenOwnAccounts {
		t.Errorf("type %s with own-transfer flag %v", tx.Type, tx.IsTransferBetweenOwnAccounts)
	}
}

func TestCreateUnknownAccountIsSkipped(t *testing.T) {
	svc, store := newFixture(t)
	in := transferInput()
	in.Endpoints = service.Endpoints{FromAccountID: "A", ToAccountID: "elsewhere"}
	in.Type = "transfer_third_party"
	res, err := svc.Create(context.Background(), "u1", "third", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(res.Applied) != 1 {
		t.Errorf("applied %d legs, want 1", len(res.Applied))
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("A = %s, want 400", got)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	svc, store := newFixture(t)
	_, err := svc.Delete(context.Background(), "u1", "nope")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
	if got := balance(t, store, models.GenericRef("A")); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("A = %s, want 500", got)
	}
}

func TestDeleteOtherUsersTransaction(t *testing.T) {
	svc, _ := newFixture(t)
	res, err := svc.Create(context.Background(), "u1", "k", transferInput())
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Delete(context.Background(), "u2", res.Transaction.ID)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListIsCachedUntilNextWrite(t *testing.T) {
	store := memory.New()
	cache, err := db.NewCache(100)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	svc := service.NewTransactionService(store, service.WithCache(cache))
	ctx := context.Background()

	txs, err := svc.List(ctx, "u1", models.TransactionFilter{})
	if err != nil || len(txs) != 0 {
		t.Fatalf("List = %v, %v", txs, err)
	}
	in := transferInput()
	in.Endpoints = service.Endpoints{}
	in.Type = "expense"
	if _, err := svc.Create(ctx, "u1", "k", in); err != nil {
		t.Fatal(err)
	}
	txs, _ = svc.List(ctx, "u1", models.TransactionFilter{})
	if len(txs) != 1 {
		t.Errorf("List after create returned %d, want 1", len(txs))
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	store := memory.New()
	bus := events.NewMemoryBus()
	svc := service.NewTransactionService(store, service.WithEvents(bus))
	ch, cancel, _ := bus.Subscribe(context.Background(), "u1")
	defer cancel()

	in := transferInput()
	in.Endpoints = service.Endpoints{}
	in.Type = "income"
	res, err := svc.Create(context.Background(), "u1", "k", in)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-ch:
		if e.Type != events.TransactionCreated || e.TransactionID != res.Transaction.ID {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestClassifyPreview(t *testing.T) {
	svc, _ := newFixture(t)
	res, err := svc.Classify(context.Background(), "u1", service.ClassifyInput{
		Endpoints:   service.Endpoints{FromWalletID: "W", ToWalletID: "someone-else"},
		Amount:      dec("1200"),
		Description: "Pago a Juan",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != models.TypeTransferThirdParty || !res.IsTransferToThirdParty {
		t.Errorf("got %+v", res.Result)
	}
	if len(res.Categories) == 0 {
		t.Error("no categories suggested")
	}
}

func TestSuspiciousCheck(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	in := transferInput()
	in.Endpoints = service.Endpoints{}
	in.Type = "expense"
	if _, err := svc.Create(ctx, "u1", "k", in); err != nil {
		t.Fatal(err)
	}
	report, err := svc.SuspiciousCheck(ctx, "u1", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatal(err)
	}
	if !report.Suspicious {
		t.Errorf("1000 against an average of 100 not flagged: %+v", report)
	}
	if _, err := svc.SuspiciousCheck(ctx, "", decimal.NewFromInt(1)); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("err = %v, want unauthenticated", err)
	}
}
