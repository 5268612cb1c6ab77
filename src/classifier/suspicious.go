package classifier

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SuspiciousAmountFactor = 5
	SuspiciousBurstCount   = 10
	SuspiciousWindow       = 24 * time.Hour
)

type SuspicionReport struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

// CheckSuspicious flags amounts far above the user's historical average and
// bursts of activity. recentCount is the number of the user's transactions in
// the SuspiciousWindow before now. The report is advisory and never blocks
// persistence.
func CheckSuspicious(amount, historicalAverage decimal.Decimal, recentCount int) SuspicionReport {
	report := SuspicionReport{Reasons: []string{}}

	if historicalAverage.IsPositive() {
		limit := historicalAverage.Mul(decimal.NewFromInt(SuspiciousAmountFactor))
		if amount.Abs().GreaterThan(limit) {
			report.Reasons = append(report.Reasons,
				fmt.Sprintf("amount %s exceeds %dx the historical average %s",
					amount.Abs().String(), SuspiciousAmountFactor, historicalAverage.StringFixed(2)))
		}
	}

	if recentCount > SuspiciousBurstCount {
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("%d transactions in the last %s", recentCount, SuspiciousWindow))
	}

	report.Suspicious = len(report.Reasons) > 0
	return report
}
