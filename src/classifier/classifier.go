// Package classifier infers what kind of movement a transaction is from the
// weak signals a form submission carries: which endpoints are filled in, who
// owns them, the payment method and the free-text description.
package classifier

import (
	"strings"

	"finanzas-server/src/models"

	"github.com/shopspring/decimal"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

const PaymentMethodCash = "cash"

// IDSet is a set of account ids owned by the acting user within one namespace.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

type Input struct {
	FromAccountID     string
	ToAccountID       string
	FromBankAccountID string
	ToBankAccountID   string
	FromWalletID      string
	ToWalletID        string
	ContactID         string
	PaymentMethod     string
	Amount            decimal.Decimal
	Description       string

	UserAccountIDs     IDSet
	UserBankAccountIDs IDSet
	UserWalletIDs      IDSet
}

type Result struct {
	Type                         models.TransactionType `json:"type"`
	IsTransferBetweenOwnAccounts bool                   `json:"isTransferBetweenOwnAccounts"`
	IsTransferToThirdParty       bool                   `json:"isTransferToThirdParty"`
	IsCashWithdrawal             bool                   `json:"isCashWithdrawal"`
	IsCashDeposit                bool                   `json:"isCashDeposit"`
	Confidence                   Confidence             `json:"confidence"`
	Rule                         string                 `json:"rule"`
}

var (
	transferKeywords = []string{"transfer", "pago", "envío"}
	incomeKeywords   = []string{"salary", "ingreso", "pago recibido", "freelance", "bonus"}
)

// endpoint is one populated-or-empty leg of a transaction in a single namespace.
type endpoint struct {
	id    string
	owned IDSet
}

func (e endpoint) present() bool { return e.id != "" }
func (e endpoint) mine() bool    { return e.owned.Has(e.id) }

// signals are derived once per evaluation and shared by every rule.
type signals struct {
	in          *Input
	generic     [2]endpoint
	bank        [2]endpoint
	wallet      [2]endpoint
	description string
}

func newSignals(in *Input) *signals {
	return &signals{
		in:          in,
		generic:     [2]endpoint{{in.FromAccountID, in.UserAccountIDs}, {in.ToAccountID, in.UserAccountIDs}},
		bank:        [2]endpoint{{in.FromBankAccountID, in.UserBankAccountIDs}, {in.ToBankAccountID, in.UserBankAccountIDs}},
		wallet:      [2]endpoint{{in.FromWalletID, in.UserWalletIDs}, {in.ToWalletID, in.UserWalletIDs}},
		description: strings.ToLower(in.Description),
	}
}

func (s *signals) froms() []endpoint { return []endpoint{s.generic[0], s.bank[0], s.wallet[0]} }
func (s *signals) tos() []endpoint   { return []endpoint{s.generic[1], s.bank[1], s.wallet[1]} }

func anyPresent(eps []endpoint) bool {
	for _, e := range eps {
		if e.present() {
			return true
		}
	}
	return false
}

// allMine is vacuously true for absent endpoints.
func allMine(eps []endpoint) bool {
	for _, e := range eps {
		if e.present() && !e.mine() {
			return false
		}
	}
	return true
}

func ownPair(pair [2]endpoint) bool {
	return pair[0].present() && pair[1].present() && pair[0].mine() && pair[1].mine()
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func (s *signals) cash() bool {
	return s.in.PaymentMethod == PaymentMethodCash
}

func (s *signals) thirdPartyTriggered() bool {
	bankPairNotOwned := s.bank[0].present() && s.bank[1].present() && !ownPair(s.bank)
	return bankPairNotOwned ||
		(s.wallet[0].present() && !s.wallet[1].present()) ||
		(s.bank[0].present() && !s.bank[1].present()) ||
		(s.generic[0].present() && !s.generic[1].present()) ||
		s.in.ContactID != "" ||
		containsAny(s.description, transferKeywords)
}

type rule struct {
	name   string
	match  func(s *signals) bool
	result func(s *signals) Result
}

// rules are evaluated in order and the first match wins. Earlier rules encode
// the patterns that are least ambiguous.
var rules = []rule{
	{
		name:  "own_generic_pair",
		match: func(s *signals) bool { return ownPair(s.generic) },
		result: func(*signals) Result {
			return Result{Type: models.TypeTransferOwnAccounts, IsTransferBetweenOwnAccounts: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name:  "own_bank_pair",
		match: func(s *signals) bool { return ownPair(s.bank) },
		result: func(*signals) Result {
			return Result{Type: models.TypeTransferOwnAccounts, IsTransferBetweenOwnAccounts: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name:  "own_wallet_pair",
		match: func(s *signals) bool { return ownPair(s.wallet) },
		result: func(*signals) Result {
			return Result{Type: models.TypeTransferOwnAccounts, IsTransferBetweenOwnAccounts: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name: "cash_withdrawal",
		match: func(s *signals) bool {
			return s.cash() && anyPresent(s.froms()) && !anyPresent(s.tos())
		},
		result: func(*signals) Result {
			return Result{Type: models.TypeWithdrawal, IsCashWithdrawal: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name: "cash_deposit",
		match: func(s *signals) bool {
			return s.cash() && !anyPresent(s.froms()) && anyPresent(s.tos())
		},
		result: func(*signals) Result {
			return Result{Type: models.TypeDeposit, IsCashDeposit: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name: "third_party_transfer",
		match: func(s *signals) bool {
			return s.thirdPartyTriggered() && allMine(s.froms()) && !allMine(s.tos())
		},
		result: func(*signals) Result {
			return Result{Type: models.TypeTransferThirdParty, IsTransferToThirdParty: true, Confidence: ConfidenceHigh}
		},
	},
	{
		name: "income_keyword",
		match: func(s *signals) bool {
			return !s.bank[0].present() && !s.wallet[0].present() &&
				s.in.Amount.IsPositive() &&
				containsAny(s.description, incomeKeywords)
		},
		result: func(*signals) Result {
			return Result{Type: models.TypeIncome, Confidence: ConfidenceHigh}
		},
	},
	{
		name:  "fallback",
		match: func(*signals) bool { return true },
		result: func(s *signals) Result {
			hasFrom, hasTo := anyPresent(s.froms()), anyPresent(s.tos())
			t := models.TypeExpense
			switch {
			case hasFrom && !hasTo:
				t = models.TypeExpense
			case s.in.Amount.IsPositive() && !hasFrom:
				t = models.TypeIncome
			}
			return Result{Type: t, Confidence: ConfidenceMedium}
		},
	},
}

// Classify returns the best-effort classification of in. It never fails and
// sets at most one of the four flags.
func Classify(in Input) Result {
	s := newSignals(&in)
	for _, r := range rules {
		if r.match(s) {
			res := r.result(s)
			res.Rule = r.name
			return res
		}
	}
	// unreachable: the fallback rule always matches
	return Result{Type: models.TypeExpense, Confidence: ConfidenceMedium, Rule: "fallback"}
}
