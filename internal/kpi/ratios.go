// Package kpi derives bank financial ratios from normalized line items.
//
// Every ratio function is total: a missing (NaN) input or a denominator
// closer to zero than Epsilon yields NaN rather than an error or Inf.
// Flow-over-stock ratios take periodsPerYear; values <= 1 leave the
// ratio unannualized.
package kpi

import "math"

// Epsilon is the smallest denominator magnitude treated as non-zero
const Epsilon = 1e-10

func missing(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func nearZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// zeroIfMissing treats an absent additive term as zero
func zeroIfMissing(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func ratio(num, den float64) float64 {
	if missing(num, den) || nearZero(den) {
		return math.NaN()
	}
	return num / den
}

func annualize(r float64, periodsPerYear int) float64 {
	if periodsPerYear > 1 {
		return r * float64(periodsPerYear)
	}
	return r
}

// Profitability

// ReturnOnEquity is net income over total equity
func ReturnOnEquity(netIncome, totalEquity float64, periodsPerYear int) float64 {
	return annualize(ratio(netIncome, totalEquity), periodsPerYear)
}

// ReturnOnAssets is net income over total assets
func ReturnOnAssets(netIncome, totalAssets float64, periodsPerYear int) float64 {
	return annualize(ratio(netIncome, totalAssets), periodsPerYear)
}

// NetInterestMargin is net interest income over total assets
func NetInterestMargin(netInterestIncome, totalAssets float64, periodsPerYear int) float64 {
	return annualize(ratio(netInterestIncome, totalAssets), periodsPerYear)
}

// EfficiencyRatio is noninterest expense over total revenue. Lower is better.
func EfficiencyRatio(noninterestExpense, totalRevenue float64) float64 {
	return ratio(noninterestExpense, totalRevenue)
}

// PreProvisionNetRevenue is NII plus noninterest income minus noninterest
// expense. Missing terms count as zero.
func PreProvisionNetRevenue(netInterestIncome, noninterestIncome, noninterestExpense float64) float64 {
	return zeroIfMissing(netInterestIncome) + zeroIfMissing(noninterestIncome) - zeroIfMissing(noninterestExpense)
}

// Valuation

// EarningsPerShare is net income over shares outstanding
func EarningsPerShare(netIncome, sharesOutstanding float64) float64 {
	return ratio(netIncome, sharesOutstanding)
}

// BookValuePerShare is total equity over shares outstanding
func BookValuePerShare(totalEquity, sharesOutstanding float64) float64 {
	return ratio(totalEquity, sharesOutstanding)
}

// TangibleBookValuePerShare strips goodwill and intangibles from equity
// before dividing by shares. Missing goodwill or intangibles count as zero.
func TangibleBookValuePerShare(totalEquity, goodwill, intangibleAssets, sharesOutstanding float64) float64 {
	if missing(totalEquity) {
		return math.NaN()
	}
	return ratio(totalEquity-zeroIfMissing(goodwill)-zeroIfMissing(intangibleAssets), sharesOutstanding)
}

// PriceToBook is price over book value per share
func PriceToBook(price, bookValuePerShare float64) float64 {
	return ratio(price, bookValuePerShare)
}

// PriceToEarnings is price over earnings per share
func PriceToEarnings(price, earningsPerShare float64) float64 {
	return ratio(price, earningsPerShare)
}

// PriceToTangibleBook is price over tangible book value per share
func PriceToTangibleBook(price, tangibleBookValuePerShare float64) float64 {
	return ratio(price, tangibleBookValuePerShare)
}

// Capital

// EquityToAssets is total equity over total assets
func EquityToAssets(totalEquity, totalAssets float64) float64 {
	return ratio(totalEquity, totalAssets)
}

// TangibleEquityRatio is tangible equity over tangible assets.
// Missing goodwill or intangibles count as zero.
func TangibleEquityRatio(totalEquity, goodwill, intangibleAssets, totalAssets float64) float64 {
	if missing(totalEquity, totalAssets) {
		return math.NaN()
	}
	gw, intang := zeroIfMissing(goodwill), zeroIfMissing(intangibleAssets)
	return ratio(totalEquity-gw-intang, totalAssets-gw-intang)
}

// LeverageRatio is total assets over total equity
func LeverageRatio(totalAssets, totalEquity float64) float64 {
	return ratio(totalAssets, totalEquity)
}

// Asset quality

// AllowanceCoverageRatio is the allowance over gross loans (net loans plus allowance)
func AllowanceCoverageRatio(allowance, loansNet float64) float64 {
	if missing(allowance, loansNet) || nearZero(loansNet) {
		return math.NaN()
	}
	return ratio(allowance, loansNet+allowance)
}

// NetChargeOffRatio approximates charge-offs with the credit-loss provision over net loans
func NetChargeOffRatio(provisionForCreditLosses, loansNet float64, periodsPerYear int) float64 {
	return annualize(ratio(provisionForCreditLosses, loansNet), periodsPerYear)
}

// Liquidity

// LoanToDepositRatio is net loans over total deposits
func LoanToDepositRatio(loansNet, totalDeposits float64) float64 {
	return ratio(loansNet, totalDeposits)
}

// Growth

// YoYGrowth is the change against the same period one year earlier
func YoYGrowth(current, priorYear float64) float64 {
	return growth(current, priorYear)
}

// QoQGrowth is the change against the previous quarter
func QoQGrowth(current, priorQuarter float64) float64 {
	return growth(current, priorQuarter)
}

func growth(current, prior float64) float64 {
	if missing(current, prior) || nearZero(prior) {
		return math.NaN()
	}
	return (current - prior) / math.Abs(prior)
}

// Batch applies a two-input ratio element-wise over columns. Positions
// beyond the shorter column are NaN.
func Batch(fn func(a, b float64) float64, a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range out {
		if i >= len(a) || i >= len(b) {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(a[i], b[i])
	}
	return out
}
