package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCheckSuspicious(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		average     string
		recent      int
		want        bool
		wantReasons int
	}{
		{"normal", "100", "80", 2, false, 0},
		{"exactly five times is fine", "500", "100", 0, false, 0},
		{"large amount", "501", "100", 0, true, 1},
		{"large negative amount", "-900", "100", 0, true, 1},
		{"no history ignores amount", "100000", "0", 0, false, 0},
		{"ten recent is fine", "10", "10", 10, false, 0},
		{"burst", "10", "10", 11, true, 1},
		{"both", "1000", "10", 20, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckSuspicious(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.average), tt.recent)
			if got.Suspicious != tt.want {
				t.Errorf("Suspicious = %v, want %v (%v)", got.Suspicious, tt.want, got.Reasons)
			}
			if len(got.Reasons) != tt.wantReasons {
				t.Errorf("len(Reasons) = %d, want %d", len(got.Reasons), tt.wantReasons)
			}
		})
	}
}
