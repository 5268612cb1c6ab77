package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GoalStatus string

const (
	GoalActive GoalStatus = "active"
	GoalClosed GoalStatus = "closed"
)

func (s GoalStatus) Valid() bool {
	return s == GoalActive || s == GoalClosed
}

// SavingsGoal.CurrentAmount only moves through saving transactions that reference it.
type SavingsGoal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Currency      string          `json:"currency"`
	Status        GoalStatus      `json:"status"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
