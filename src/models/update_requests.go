package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Update requests only carry descriptive fields. Balances and goal progress
// are never edited through them.

type UpdateAccountRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	Number      string `json:"number"`
}

type UpdateGoalRequest struct {
	Name         string           `json:"name"`
	TargetAmount *decimal.Decimal `json:"targetAmount"`
	Status       GoalStatus       `json:"status"`
	Deadline     *time.Time       `json:"deadline"`
}

type UpdateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Alias string `json:"alias"`
	Notes string `json:"notes"`
}
