// Package service orchestrates transaction writes: authorization, input
// validation, idempotency, classification and balance reconciliation, all
// committed through one unit of work.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/classifier"
	"finanzas-server/src/db"
	"finanzas-server/src/events"
	"finanzas-server/src/logger"
	"finanzas-server/src/models"
	"finanzas-server/src/reconciler"
	"finanzas-server/src/util"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// TypeAuto and CategoryAuto ask the server to infer the value.
	TypeAuto     = "auto"
	CategoryAuto = "auto"

	opCreateTransaction = "create_transaction"
)

// Endpoints are the optional account legs of a request. Each side may name
// at most one namespace.
type Endpoints struct {
	FromAccountID     string `json:"fromAccountId,omitempty"`
	ToAccountID       string `json:"toAccountId,omitempty"`
	FromBankAccountID string `json:"fromBankAccountId,omitempty"`
	ToBankAccountID   string `json:"toBankAccountId,omitempty"`
	FromWalletID      string `json:"fromWalletId,omitempty"`
	ToWalletID        string `json:"toWalletId,omitempty"`
}

func sideRef(side, generic, bank, wallet string) (models.AccountRef, error) {
	var refs []models.AccountRef
	if generic != "" {
		refs = append(refs, models.GenericRef(generic))
	}
	if bank != "" {
		refs = append(refs, models.BankRef(bank))
	}
	if wallet != "" {
		refs = append(refs, models.WalletRef(wallet))
	}
	switch len(refs) {
	case 0:
		return models.AccountRef{}, nil
	case 1:
		return refs[0], nil
	}
	return models.AccountRef{}, apperr.Validation("%s side may reference only one of account, bank account or wallet", side)
}

// Refs resolves the endpoints into at most one ref per side.
func (e Endpoints) Refs() (from, to models.AccountRef, err error) {
	if from, err = sideRef("from", e.FromAccountID, e.FromBankAccountID, e.FromWalletID); err != nil {
		return
	}
	to, err = sideRef("to", e.ToAccountID, e.ToBankAccountID, e.ToWalletID)
	return
}

func (e Endpoints) trimmed() Endpoints {
	return Endpoints{
		FromAccountID:     strings.TrimSpace(e.FromAccountID),
		ToAccountID:       strings.TrimSpace(e.ToAccountID),
		FromBankAccountID: strings.TrimSpace(e.FromBankAccountID),
		ToBankAccountID:   strings.TrimSpace(e.ToBankAccountID),
		FromWalletID:      strings.TrimSpace(e.FromWalletID),
		ToWalletID:        strings.TrimSpace(e.ToWalletID),
	}
}

type CreateTransactionInput struct {
	Endpoints
	Type              string
	Category          string
	Amount            *decimal.Decimal
	Description       string
	Date              *time.Time
	Currency          string
	ContactID         string
	GoalID            string
	PaymentMethod     string
	TransferRecipient string
	TransferSender    string
}

func (in *CreateTransactionInput) normalize() {
	in.Endpoints = in.Endpoints.trimmed()
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = util.NormalizeCurrency(in.Currency)
	in.ContactID = strings.TrimSpace(in.ContactID)
	in.GoalID = strings.TrimSpace(in.GoalID)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
}

func (in *CreateTransactionInput) validate() error {
	switch {
	case in.Type == "":
		return apperr.Validation("type is required")
	case in.Category == "":
		return apperr.Validation("category is required")
	case in.Amount == nil:
		return apperr.Validation("amount is required")
	case in.Description == "":
		return apperr.Validation("description is required")
	case in.Date == nil || in.Date.IsZero():
		return apperr.Validation("date is required")
	}
	if !in.Amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero")
	}
	if !util.ValidateMoneyScale(*in.Amount) {
		return apperr.Validation("amount supports at most %d decimal places", util.MoneyScale)
	}
	if in.Type != TypeAuto && !models.TransactionType(in.Type).Valid() {
		return apperr.Validation("invalid transaction type %q", in.Type)
	}
	if !util.ValidateCurrency(in.Currency) {
		return apperr.Validation("invalid currency %q", in.Currency)
	}
	return nil
}

// ErrIdempotencyKeyReused is returned when a key comes back with a request
// that differs from the one it was first used with.
var ErrIdempotencyKeyReused = apperr.Conflict("Idempotency-Key was already used with a different request", nil)

func hashParts(parts ...string) string {
	h := xxhash.New()
	for _, part := range parts {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// IdempotencyScope identifies one (user, key) pair. At most one transaction
// is ever stored per scope.
func IdempotencyScope(userID, key string) string {
	return opCreateTransaction + ":" + hashParts(opCreateTransaction, userID, key)
}

// RequestFingerprint hashes the fields of a create request that decide what
// gets written. The date is left out because clients that omit it get a
// fresh default on every retry.
func RequestFingerprint(in CreateTransactionInput) string {
	amount := ""
	if in.Amount != nil {
		amount = in.Amount.String()
	}
	return hashParts(
		in.Type, in.Category, amount, in.Description, in.Currency,
		in.FromAccountID, in.ToAccountID,
		in.FromBankAccountID, in.ToBankAccountID,
		in.FromWalletID, in.ToWalletID,
		in.ContactID, in.GoalID, in.PaymentMethod,
		in.TransferRecipient, in.TransferSender,
	)
}

// replay answers a repeated key: the stored transaction when the request
// matches, a conflict when it does not.
func replay(existing *models.Transaction, fingerprint string) (*CreateResult, error) {
	if existing.RequestFingerprint != fingerprint {
		return nil, ErrIdempotencyKeyReused
	}
	return &CreateResult{Transaction: existing, Replayed: true}, nil
}

type CreateResult struct {
	Transaction *models.Transaction
	Classified  classifier.Result
	Applied     []reconciler.Delta
	// Replayed is true when the key had already been used and nothing new
	// was written.
	Replayed bool
}

type ClassifyResult struct {
	classifier.Result
	SuggestedCategory string   `json:"suggestedCategory"`
	Categories        []string `json:"categories"`
}

type TransactionService struct {
	store        Store
	cache        *db.Cache
	events       events.Publisher
	baseCurrency string
	now          func() time.Time
}

type Option func(*TransactionService)

func WithCache(c *db.Cache) Option {
	return func(s *TransactionService) { s.cache = c }
}

func WithEvents(p events.Publisher) Option {
	return func(s *TransactionService) { s.events = p }
}

func WithBaseCurrency(code string) Option {
	return func(s *TransactionService) { s.baseCurrency = util.NormalizeCurrency(code) }
}

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func NewTransactionService(store Store, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:        store,
		baseCurrency: "ARS",
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) BaseCurrency() string {
	return s.baseCurrency
}

// Create records a new transaction and applies its balance effects. The
// caller's identity is checked before anything about the input.
func (s *TransactionService) Create(ctx context.Context, userID, idempotencyKey string, in CreateTransactionInput) (*CreateResult, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	in.normalize()
	if in.Currency == "" {
		in.Currency = s.baseCurrency
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	from, to, err := in.Refs()
	if err != nil {
		return nil, err
	}

	scope, fingerprint := "", RequestFingerprint(in)
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		scope = IdempotencyScope(userID, key)
	}

	var result *CreateResult
	err = s.store.WithinTx(ctx, func(uow UnitOfWork) error {
		if scope != "" {
			existing, err := uow.FindTransactionByScope(ctx, userID, scope)
			if err == nil {
				result, err = replay(existing, fingerprint)
				return err
			}
			if apperr.KindOf(err) != apperr.KindNotFound {
				return err
			}
		}

		if err := checkCurrency(ctx, uow, userID, in.Currency, from, to); err != nil {
			return err
		}

		owned, err := ownership(ctx, uow, userID)
		if err != nil {
			return err
		}
		cls := classifier.Classify(classifierInput(in.Endpoints, in.ContactID, in.PaymentMethod, *in.Amount, in.Description, owned))

		t := &models.Transaction{
			ID:                 uuid.NewString(),
			UserID:             userID,
			Type:               models.TransactionType(in.Type),
			Category:           in.Category,
			Amount:             *in.Amount,
			Currency:           in.Currency,
			Description:        in.Description,
			Date:               in.Date.UTC(),
			From:               from,
			To:                 to,
			ContactID:          in.ContactID,
			GoalID:             in.GoalID,
			PaymentMethod:      in.PaymentMethod,
			TransferRecipient:  in.TransferRecipient,
			TransferSender:     in.TransferSender,
			IdempotencyScope:   scope,
			RequestFingerprint: fingerprint,
			CreatedAt:          s.now(),
		}
		if in.Type == TypeAuto {
			t.Type = cls.Type
		}
		// Flags describe the stored type, so they are only trusted when the
		// classifier agrees with it.
		if cls.Type == t.Type {
			t.IsTransferBetweenOwnAccounts = cls.IsTransferBetweenOwnAccounts
			t.IsTransferToThirdParty = cls.IsTransferToThirdParty
			t.IsCashWithdrawal = cls.IsCashWithdrawal
			t.IsCashDeposit = cls.IsCashDeposit
		}
		if strings.EqualFold(t.Category, CategoryAuto) {
			t.Category = classifier.CategoryOther
			if c, ok := classifier.DetectCategory(t.Description); ok {
				t.Category = c
			}
		}

		applied, err := reconciler.ApplyCreate(ctx, uow, t)
		if err != nil {
			return err
		}
		result = &CreateResult{Transaction: t, Classified: cls, Applied: applied}
		return nil
	})
	if err != nil {
		if scope != "" && apperr.KindOf(err) == apperr.KindConflict && !errors.Is(err, ErrIdempotencyKeyReused) {
			// A concurrent request with the same scope won the insert.
			existing, ferr := s.store.FindTransactionByScope(ctx, userID, scope)
			if ferr == nil {
				return replay(existing, fingerprint)
			}
		}
		return nil, err
	}

	log := logger.FromContext(ctx)
	if result.Replayed {
		log.Info().Str("user_id", userID).Str("transaction_id", result.Transaction.ID).Msg("idempotent replay of transaction create")
		return result, nil
	}

	s.invalidate(userID)
	s.publish(ctx, events.TransactionCreated, result.Transaction)
	log.Info().
		Str("user_id", userID).
		Str("transaction_id", result.Transaction.ID).
		Str("type", string(result.Transaction.Type)).
		Int("deltas", len(result.Applied)).
		Msg("transaction created")
	return result, nil
}

// Delete removes a transaction and reverses its balance effects.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("transaction id is required")
	}

	var deleted *models.Transaction
	err := s.store.WithinTx(ctx, func(uow UnitOfWork) error {
		t, _, err := reconciler.ApplyDelete(ctx, uow, userID, id)
		if err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)
	s.publish(ctx, events.TransactionDeleted, deleted)
	logger.FromContext(ctx).Info().Str("user_id", userID).Str("transaction_id", id).Msg("transaction deleted")
	return deleted, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return s.store.GetTransaction(ctx, userID, id)
}

func filterKey(f models.TransactionFilter) []string {
	parts := []string{string(f.Type), strconv.Itoa(f.Limit)}
	for _, t := range []*time.Time{f.From, f.To} {
		if t == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, t.UTC().Format(time.RFC3339))
	}
	return parts
}

// List returns the user's transactions newest first. Results are served from
// the read cache until the user's next write.
func (s *TransactionService) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Validation("invalid transaction type %q", filter.Type)
	}
	if filter.Limit < 0 {
		return nil, apperr.Validation("limit must not be negative")
	}

	key := db.Key(db.TransactionCache, userID, filterKey(filter)...)
	if cached, found := s.cache.Get(key); found {
		if txs, ok := cached.([]models.Transaction); ok {
			return txs, nil
		}
	}

	txs, err := s.store.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	s.cache.Set(db.TransactionCache, key, txs)
	return txs, nil
}

// ClassifyInput is a classification preview request.
type ClassifyInput struct {
	Endpoints
	ContactID     string           `json:"contactId,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Description   string           `json:"description,omitempty"`
}

// Classify previews what Create would infer for the given signals without
// writing anything.
func (s *TransactionService) Classify(ctx context.Context, userID string, in ClassifyInput) (*ClassifyResult, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	owned, err := ownership(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	amount := decimal.Zero
	if in.Amount != nil {
		amount = *in.Amount
	}
	res := classifier.Classify(classifierInput(in.Endpoints.trimmed(), strings.TrimSpace(in.ContactID), in.PaymentMethod, amount, in.Description, owned))

	category := classifier.CategoryOther
	if c, ok := classifier.DetectCategory(in.Description); ok {
		category = c
	}
	return &ClassifyResult{
		Result:            res,
		SuggestedCategory: category,
		Categories:        classifier.CategoriesFor(res.Type),
	}, nil
}

// SuspiciousCheck compares amount against the user's history. It is
// advisory and never blocks a write.
func (s *TransactionService) SuspiciousCheck(ctx context.Context, userID string, amount decimal.Decimal) (classifier.SuspicionReport, error) {
	if userID == "" {
		return classifier.SuspicionReport{}, apperr.ErrUnauthenticated
	}
	stats, err := s.store.TransactionStats(ctx, userID, s.now().Add(-classifier.SuspiciousWindow))
	if err != nil {
		return classifier.SuspicionReport{}, err
	}
	return classifier.CheckSuspicious(amount, stats.AverageAmount, stats.RecentCount), nil
}

// Dashboard summarises [from, to]. A zero from defaults to the start of the
// current month and a zero to defaults to now.
func (s *TransactionService) Dashboard(ctx context.Context, userID string, from, to time.Time) (*models.Dashboard, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	now := s.now()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if from.After(to) {
		return nil, apperr.Validation("from must not be after to")
	}

	key := db.Key(db.DashboardCache, userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if cached, found := s.cache.Get(key); found {
		if d, ok := cached.(*models.Dashboard); ok {
			return d, nil
		}
	}
	d, err := s.store.Dashboard(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	s.cache.Set(db.DashboardCache, key, d)
	return d, nil
}

func (s *TransactionService) invalidate(userID string) {
	s.cache.ClearUser(userID, db.TransactionCache, db.AccountCache, db.DashboardCache)
}

func (s *TransactionService) publish(ctx context.Context, eventType string, t *models.Transaction) {
	if s.events == nil || t == nil {
		return
	}
	err := s.events.Publish(ctx, events.Event{
		Type:            eventType,
		UserID:          t.UserID,
		TransactionID:   t.ID,
		TransactionType: string(t.Type),
		Amount:          t.Amount,
		Currency:        t.Currency,
		Timestamp:       s.now(),
	})
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("transaction_id", t.ID).Msg("failed to publish transaction event")
	}
}

// checkCurrency rejects a transaction whose currency differs from either
// resolvable endpoint. Unknown endpoints are left to the reconciler to skip.
func checkCurrency(ctx context.Context, uow UnitOfWork, userID, currency string, refs ...models.AccountRef) error {
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		acc, err := uow.GetAccount(ctx, userID, ref)
		if apperr.KindOf(err) == apperr.KindNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if acc.Currency != currency {
			return apperr.Validation("currency %s does not match %s currency %s", currency, ref.Kind, acc.Currency)
		}
	}
	return nil
}

type accountLister interface {
	ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error)
}

type ownedIDs map[models.AccountKind]classifier.IDSet

func ownership(ctx context.Context, l accountLister, userID string) (ownedIDs, error) {
	accounts, err := l.ListAccounts(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	owned := ownedIDs{}
	for _, kind := range models.AccountKinds {
		owned[kind] = classifier.IDSet{}
	}
	for _, a := range accounts {
		if set, ok := owned[a.Kind]; ok {
			set[a.ID] = struct{}{}
		}
	}
	return owned, nil
}

func classifierInput(e Endpoints, contactID, paymentMethod string, amount decimal.Decimal, description string, owned ownedIDs) classifier.Input {
	return classifier.Input{
		FromAccountID:      e.FromAccountID,
		ToAccountID:        e.ToAccountID,
		FromBankAccountID:  e.FromBankAccountID,
		ToBankAccountID:    e.ToBankAccountID,
		FromWalletID:       e.FromWalletID,
		ToWalletID:         e.ToWalletID,
		ContactID:          contactID,
		PaymentMethod:      paymentMethod,
		Amount:             amount,
		Description:        description,
		UserAccountIDs:     owned[models.AccountKindGeneric],
		UserBankAccountIDs: owned[models.AccountKindBank],
		UserWalletIDs:      owned[models.AccountKindWallet],
	}
}
