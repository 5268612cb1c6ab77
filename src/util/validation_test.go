package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateEmail(t *testing.T) {
	tests := map[string]bool{
		"ana@example.com":       true,
		"a.b+tag@sub.domain.ar": true,
		"no-at-sign.com":        false,
		"ana@example":           false,
		"":                      false,
	}
	for in, want := range tests {
		if got := ValidateEmail(in); got != want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := map[string]bool{
		"Sup3r$ecret": true,
		"short1!A":    true,
		"Sh0rt!":      false,
		"alllower1!":  false,
		"ALLUPPER1!":  false,
		"NoDigits!!":  false,
		"NoSpecial12": false,
	}
	for in, want := range tests {
		if got := ValidatePassword(in); got != want {
			t.Errorf("ValidatePassword(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	if ValidateUsername("ab") {
		t.Error("two characters should be rejected")
	}
	if !ValidateUsername("ana") {
		t.Error("three characters should be accepted")
	}
}

func TestCurrency(t *testing.T) {
	if got := NormalizeCurrency(" usd "); got != "USD" {
		t.Errorf("NormalizeCurrency = %q", got)
	}
	for code, want := range map[string]bool{"USD": true, "ARS": true, "usd": false, "US": false, "USDT": false} {
		if got := ValidateCurrency(code); got != want {
			t.Errorf("ValidateCurrency(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestValidateMoneyScale(t *testing.T) {
	for in, want := range map[string]bool{
		"100":      true,
		"0.0001":   true,
		"12.50000": true,
		"0.00005":  false,
		"1.23456":  false,
		"-3.14159": false,
	} {
		if got := ValidateMoneyScale(decimal.RequireFromString(in)); got != want {
			t.Errorf("ValidateMoneyScale(%s) = %v, want %v", in, got, want)
		}
	}
}
