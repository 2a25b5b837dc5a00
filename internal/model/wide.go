package model

import (
	"math"
	"sort"
	"time"
)

// WideRow is one entity-period with every resolved concept as an optional field.
// A nil field means the concept was not disclosed for the period.
type WideRow struct {
	EntityID     string       `json:"entity_id"`
	FiscalYear   int          `json:"fiscal_year"`
	FiscalPeriod FiscalPeriod `json:"fiscal_period"`
	AsOf         time.Time    `json:"as_of_date"`

	// Income statement
	TotalRevenue             *float64 `json:"total_revenue,omitempty"`
	NetInterestIncome        *float64 `json:"net_interest_income,omitempty"`
	NoninterestIncome        *float64 `json:"noninterest_income,omitempty"`
	ProvisionForCreditLosses *float64 `json:"provision_for_credit_losses,omitempty"`
	NoninterestExpense       *float64 `json:"noninterest_expense,omitempty"`
	IncomeBeforeTax          *float64 `json:"income_before_tax,omitempty"`
	IncomeTaxExpense         *float64 `json:"income_tax_expense,omitempty"`
	NetIncome                *float64 `json:"net_income,omitempty"`
	ComprehensiveIncome      *float64 `json:"comprehensive_income,omitempty"`

	// Balance sheet: assets
	TotalAssets            *float64 `json:"total_assets,omitempty"`
	CashAndEquivalents     *float64 `json:"cash_and_equivalents,omitempty"`
	TradingAssets          *float64 `json:"trading_assets,omitempty"`
	InvestmentSecurities   *float64 `json:"investment_securities,omitempty"`
	LoansNet               *float64 `json:"loans_net,omitempty"`
	AllowanceForLoanLosses *float64 `json:"allowance_for_loan_losses,omitempty"`
	Goodwill               *float64 `json:"goodwill,omitempty"`
	IntangibleAssets       *float64 `json:"intangible_assets,omitempty"`

	// Balance sheet: liabilities and equity
	TotalLiabilities                    *float64 `json:"total_liabilities,omitempty"`
	TotalDeposits                       *float64 `json:"total_deposits,omitempty"`
	ShortTermBorrowings                 *float64 `json:"short_term_borrowings,omitempty"`
	LongTermDebt                        *float64 `json:"long_term_debt,omitempty"`
	TotalEquity                         *float64 `json:"total_equity,omitempty"`
	CommonStock                         *float64 `json:"common_stock,omitempty"`
	RetainedEarnings                    *float64 `json:"retained_earnings,omitempty"`
	TreasuryStock                       *float64 `json:"treasury_stock,omitempty"`
	AccumulatedOtherComprehensiveIncome *float64 `json:"accumulated_other_comprehensive_income,omitempty"`

	// Shares
	SharesOutstanding        *float64 `json:"shares_outstanding,omitempty"`
	WeightedAvgSharesBasic   *float64 `json:"weighted_avg_shares_basic,omitempty"`
	WeightedAvgSharesDiluted *float64 `json:"weighted_avg_shares_diluted,omitempty"`

	// Cash flow
	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	InvestingCashFlow *float64 `json:"investing_cash_flow,omitempty"`
	FinancingCashFlow *float64 `json:"financing_cash_flow,omitempty"`
	DividendsPaid     *float64 `json:"dividends_paid,omitempty"`
	ShareRepurchases  *float64 `json:"share_repurchases,omitempty"`

	// Extra holds concepts outside the standard line-item set
	Extra map[string]float64 `json:"extra,omitempty"`
}

type wideField struct {
	name string
	ptr  func(*WideRow) **float64
}

var wideFields = []wideField{
	{"total_revenue", func(r *WideRow) **float64 { return &r.TotalRevenue }},
	{"net_interest_income", func(r *WideRow) **float64 { return &r.NetInterestIncome }},
	{"noninterest_income", func(r *WideRow) **float64 { return &r.NoninterestIncome }},
	{"provision_for_credit_losses", func(r *WideRow) **float64 { return &r.ProvisionForCreditLosses }},
	{"noninterest_expense", func(r *WideRow) **float64 { return &r.NoninterestExpense }},
	{"income_before_tax", func(r *WideRow) **float64 { return &r.IncomeBeforeTax }},
	{"income_tax_expense", func(r *WideRow) **float64 { return &r.IncomeTaxExpense }},
	{"net_income", func(r *WideRow) **float64 { return &r.NetIncome }},
	{"comprehensive_income", func(r *WideRow) **float64 { return &r.ComprehensiveIncome }},
	{"total_assets", func(r *WideRow) **float64 { return &r.TotalAssets }},
	{"cash_and_equivalents", func(r *WideRow) **float64 { return &r.CashAndEquivalents }},
	{"trading_assets", func(r *WideRow) **float64 { return &r.TradingAssets }},
	{"investment_securities", func(r *WideRow) **float64 { return &r.InvestmentSecurities }},
	{"loans_net", func(r *WideRow) **float64 { return &r.LoansNet }},
	{"allowance_for_loan_losses", func(r *WideRow) **float64 { return &r.AllowanceForLoanLosses }},
	{"goodwill", func(r *WideRow) **float64 { return &r.Goodwill }},
	{"intangible_assets", func(r *WideRow) **float64 { return &r.IntangibleAssets }},
	{"total_liabilities", func(r *WideRow) **float64 { return &r.TotalLiabilities }},
	{"total_deposits", func(r *WideRow) **float64 { return &r.TotalDeposits }},
	{"short_term_borrowings", func(r *WideRow) **float64 { return &r.ShortTermBorrowings }},
	{"long_term_debt", func(r *WideRow) **float64 { return &r.LongTermDebt }},
	{"total_equity", func(r *WideRow) **float64 { return &r.TotalEquity }},
	{"common_stock", func(r *WideRow) **float64 { return &r.CommonStock }},
	{"retained_earnings", func(r *WideRow) **float64 { return &r.RetainedEarnings }},
	{"treasury_stock", func(r *WideRow) **float64 { return &r.TreasuryStock }},
	{"accumulated_other_comprehensive_income", func(r *WideRow) **float64 { return &r.AccumulatedOtherComprehensiveIncome }},
	{"shares_outstanding", func(r *WideRow) **float64 { return &r.SharesOutstanding }},
	{"weighted_avg_shares_basic", func(r *WideRow) **float64 { return &r.WeightedAvgSharesBasic }},
	{"weighted_avg_shares_diluted", func(r *WideRow) **float64 { return &r.WeightedAvgSharesDiluted }},
	{"operating_cash_flow", func(r *WideRow) **float64 { return &r.OperatingCashFlow }},
	{"investing_cash_flow", func(r *WideRow) **float64 { return &r.InvestingCashFlow }},
	{"financing_cash_flow", func(r *WideRow) **float64 { return &r.FinancingCashFlow }},
	{"dividends_paid", func(r *WideRow) **float64 { return &r.DividendsPaid }},
	{"share_repurchases", func(r *WideRow) **float64 { return &r.ShareRepurchases }},
}

var wideFieldIndex = func() map[string]int {
	idx := make(map[string]int, len(wideFields))
	for i, f := range wideFields {
		idx[f.name] = i
	}
	return idx
}()

// Float returns a pointer to v, for building rows by hand
func Float(v float64) *float64 {
	return &v
}

// Key returns the fiscal period the row describes
func (r WideRow) Key() PeriodKey {
	return PeriodKey{EntityID: r.EntityID, FiscalYear: r.FiscalYear, FiscalPeriod: r.FiscalPeriod}
}

// Set stores value under concept unless a value is already present.
// It reports whether the value was stored.
func (r *WideRow) Set(concept string, value float64) bool {
	if i, ok := wideFieldIndex[concept]; ok {
		p := wideFields[i].ptr(r)
		if *p != nil {
			return false
		}
		*p = Float(value)
		return true
	}
	if r.Extra == nil {
		r.Extra = make(map[string]float64)
	}
	if _, exists := r.Extra[concept]; exists {
		return false
	}
	r.Extra[concept] = value
	return true
}

// Get returns the value for concept and whether it is present
func (r WideRow) Get(concept string) (float64, bool) {
	if i, ok := wideFieldIndex[concept]; ok {
		p := *wideFields[i].ptr(&r)
		if p == nil {
			return math.NaN(), false
		}
		return *p, true
	}
	v, ok := r.Extra[concept]
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

// Concepts lists the concepts present in the row, standard fields first
func (r WideRow) Concepts() []string {
	var names []string
	for _, f := range wideFields {
		if *f.ptr(&r) != nil {
			names = append(names, f.name)
		}
	}
	extra := make([]string, 0, len(r.Extra))
	for name := range r.Extra {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// WideColumns returns the union of concepts present across rows, in field order
func WideColumns(rows []WideRow) []string {
	seen := make(map[string]bool)
	var extra []string
	for _, row := range rows {
		for _, name := range row.Concepts() {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, std := wideFieldIndex[name]; !std {
				extra = append(extra, name)
			}
		}
	}
	var cols []string
	for _, f := range wideFields {
		if seen[f.name] {
			cols = append(cols, f.name)
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// OrNaN unwraps an optional value, mapping nil to NaN
func OrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// OrZero unwraps an optional value, mapping nil and NaN to zero
func OrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}
