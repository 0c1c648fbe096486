package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the immutable outcome of one adjustment calculation. Monetary
// fields carry two decimal places, percentages one; both resolved index
// values are reported unrounded.
type Result struct {
	AdjustedSalary              decimal.Decimal `json:"adjusted_salary"`
	DollarGap                   decimal.Decimal `json:"dollar_gap"`
	PercentageGap               decimal.Decimal `json:"percentage_gap"`
	ImpliedInflationRatePercent decimal.Decimal `json:"implied_inflation_rate_percent"`
	HistoricalIndex             decimal.Decimal `json:"historical_index"`
	CurrentIndex                decimal.Decimal `json:"current_index"`
	CalculationTimestamp        time.Time       `json:"calculation_timestamp"`
}

var oneHundred = decimal.NewFromInt(100)

// ComputeAdjustment derives the inflation-adjusted salary and gap figures
// from two resolved index values. All arithmetic is exact decimal; rounding
// happens exactly once, on the final values, half-up.
func ComputeAdjustment(originalSalary, currentSalary, historicalIndex, currentIndex decimal.Decimal, at time.Time) (Result, error) {
	if historicalIndex.Sign() <= 0 {
		return Result{}, &InvalidCPIDataError{Value: historicalIndex}
	}
	if currentIndex.Sign() <= 0 {
		return Result{}, &InvalidCPIDataError{Value: currentIndex}
	}
	if originalSalary.Sign() <= 0 {
		return Result{}, invalidRequestf("original salary %s must be positive", originalSalary)
	}
	if currentSalary.Sign() < 0 {
		return Result{}, invalidRequestf("current salary %s must not be negative", currentSalary)
	}

	ratio := currentIndex.Div(historicalIndex)
	adjusted := originalSalary.Mul(ratio)
	dollarGap := adjusted.Sub(currentSalary)

	percentageGap := decimal.Zero
	if !currentSalary.IsZero() {
		percentageGap = dollarGap.Div(currentSalary).Mul(oneHundred)
	}
	impliedInflation := currentIndex.Sub(historicalIndex).Div(historicalIndex).Mul(oneHundred)

	return Result{
		AdjustedSalary:              adjusted.Round(2),
		DollarGap:                   dollarGap.Round(2),
		PercentageGap:               percentageGap.Round(1),
		ImpliedInflationRatePercent: impliedInflation.Round(1),
		HistoricalIndex:             historicalIndex,
		CurrentIndex:                currentIndex,
		CalculationTimestamp:        at,
	}, nil
}
