package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money columns store.
const MoneyScale = 4

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	lowerRe    = regexp.MustCompile("[a-z]")
	upperRe    = regexp.MustCompile("[A-Z]")
	digitRe    = regexp.MustCompile("[0-9]")
	specialRe  = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

func ValidateUsername(username string) bool {
	return len(username) >= 3 && len(username) <= 30
}

func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		specialRe.MatchString(password)
}

// NormalizeCurrency upper-cases and trims an ISO-like currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

// ValidateMoneyScale reports whether d is representable in a money column
// without rounding.
func ValidateMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
