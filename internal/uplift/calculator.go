// Package uplift computes net-profit uplift and the fee owed on it.
//
// All functions are pure. Amounts are int64 minor units; the fee rate is a
// shopspring decimal parsed per client. Fees are rounded half-even to the
// cent and can never be negative.
package uplift

import (
	"github.com/netlift/netlift/pkg/money"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a single uplift computation.
type Result struct {
	NetProfitUplift int64
	FeeAmount       int64
	FeeApplicable   bool
}

// Compute derives net-profit uplift from incremental revenue minus
// incremental ad spend, and the fee on that uplift. A non-positive uplift
// yields no fee. The final clamp runs on every path: the fee is never
// allowed below zero regardless of how it was produced.
func Compute(incRevenue, incAdSpend int64, feePct decimal.Decimal) Result {
	netProfitUplift := incRevenue - incAdSpend

	var fee int64
	applicable := netProfitUplift > 0
	if applicable {
		fee = money.MulRoundHalfEven(netProfitUplift, feePct)
	}
	if fee < 0 {
		fee = 0
	}

	return Result{
		NetProfitUplift: netProfitUplift,
		FeeAmount:       fee,
		FeeApplicable:   applicable,
	}
}

// Period holds the incrementals for a settlement period.
type Period struct {
	IncrementalRevenue int64
	IncrementalAdSpend int64
	NetProfitUplift    int64
}

// PeriodUplift compares a period's actuals against the baseline for the
// same window. Incrementals may be negative; the settlement fee on a
// negative period is zero, never a charge.
func PeriodUplift(actualRevenue, baselineRevenue, actualAdSpend, baselineAdSpend int64) Period {
	incRevenue := actualRevenue - baselineRevenue
	incAdSpend := actualAdSpend - baselineAdSpend
	return Period{
		IncrementalRevenue: incRevenue,
		IncrementalAdSpend: incAdSpend,
		NetProfitUplift:    incRevenue - incAdSpend,
	}
}

// ROI expresses the client's net gain as a percentage of fees paid.
// Zero fees mean ROI is reported as zero rather than infinite.
func ROI(netGainCents, feeCents int64) float64 {
	if feeCents <= 0 {
		return 0
	}
	gain := decimal.New(netGainCents, 0)
	fee := decimal.New(feeCents, 0)
	roi, _ := gain.Div(fee).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return roi
}
