package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CurrencyTotals struct {
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Net      decimal.Decimal `json:"net"`
}

type Dashboard struct {
	From         time.Time               `json:"from"`
	To           time.Time               `json:"to"`
	Totals       []CurrencyTotals        `json:"totals"`
	CountsByType map[TransactionType]int `json:"countsByType"`
	Accounts     []Account               `json:"accounts"`
	Goals        []SavingsGoal           `json:"goals"`
}
