package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeIncome              TransactionType = "income"
	TypeExpense             TransactionType = "expense"
	TypeTransferOwnAccounts TransactionType = "transfer_own_accounts"
	TypeTransferThirdParty  TransactionType = "transfer_third_party"
	TypeDeposit             TransactionType = "deposit"
	TypeWithdrawal          TransactionType = "withdrawal"
	TypeSaving              TransactionType = "saving"
)

var TransactionTypes = []TransactionType{
	TypeIncome,
	TypeExpense,
	TypeTransferOwnAccounts,
	TypeTransferThirdParty,
	TypeDeposit,
	TypeWithdrawal,
	TypeSaving,
}

func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Transaction is one financial movement. Financial fields are immutable once stored.
type Transaction struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Type              TransactionType `json:"type"`
	Category          string          `json:"category"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Description       string          `json:"description"`
	Date              time.Time       `json:"date"`
	From              AccountRef      `json:"from"`
	To                AccountRef      `json:"to"`
	ContactID         string          `json:"contactId,omitempty"`
	GoalID            string          `json:"goalId,omitempty"`
	PaymentMethod     string          `json:"paymentMethod,omitempty"`
	TransferRecipient string          `json:"transferRecipient,omitempty"`
	TransferSender    string          `json:"transferSender,omitempty"`

	IsTransferBetweenOwnAccounts bool `json:"isTransferBetweenOwnAccounts"`
	IsTransferToThirdParty       bool `json:"isTransferToThirdParty"`
	IsCashWithdrawal             bool `json:"isCashWithdrawal"`
	IsCashDeposit                bool `json:"isCashDeposit"`

	IdempotencyScope   string    `json:"-"`
	RequestFingerprint string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
}

type TransactionFilter struct {
	From  *time.Time
	To    *time.Time
	Type  TransactionType
	Limit int
}
