package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind names one of the three disjoint account namespaces.
type AccountKind string

const (
	AccountKindGeneric AccountKind = "account"
	AccountKindBank    AccountKind = "bank_account"
	AccountKindWallet  AccountKind = "wallet"
)

// AccountKinds lists every namespace in the order they are checked.
var AccountKinds = []AccountKind{AccountKindGeneric, AccountKindBank, AccountKindWallet}

func ParseAccountKind(s string) (AccountKind, bool) {
	switch AccountKind(s) {
	case AccountKindGeneric, AccountKindBank, AccountKindWallet:
		return AccountKind(s), true
	}
	return "", false
}

// AccountRef points at exactly one account row in exactly one namespace.
// The zero value means "no account".
type AccountRef struct {
	Kind AccountKind `json:"kind"`
	ID   string      `json:"id"`
}

func GenericRef(id string) AccountRef { return AccountRef{Kind: AccountKindGeneric, ID: id} }
func BankRef(id string) AccountRef    { return AccountRef{Kind: AccountKindBank, ID: id} }
func WalletRef(id string) AccountRef  { return AccountRef{Kind: AccountKindWallet, ID: id} }

func (r AccountRef) IsZero() bool {
	return r.ID == ""
}

func (r AccountRef) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.Kind) + ":" + r.ID
}

type Account struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Kind        AccountKind     `json:"kind"`
	Name        string          `json:"name"`
	Institution string          `json:"institution,omitempty"`
	Number      string          `json:"number,omitempty"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (a Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, ID: a.ID}
}
