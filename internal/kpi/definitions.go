package kpi

import (
	"fmt"

	"github.com/ppiankov/banklab/internal/registry"
)

// Definition documents one KPI
type Definition struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Formula     string   `json:"formula"`
	Unit        string   `json:"unit"` // percent, currency, multiple
	Inputs      []string `json:"inputs"`
	Description string   `json:"description"`
}

// KPI categories
const (
	CategoryProfitability = "profitability"
	CategoryValuation     = "valuation"
	CategoryCapital       = "capital"
	CategoryLiquidity     = "liquidity"
	CategoryAssetQuality  = "asset_quality"
	CategoryGrowth        = "growth"
)

// KPI units
const (
	UnitPercent  = "percent"
	UnitCurrency = "currency"
	UnitMultiple = "multiple"
)

var definitions = []Definition{
	{"roe", "Return on Equity", CategoryProfitability, "Net Income / Shareholders' Equity (annualized)", UnitPercent,
		[]string{"net_income", "total_equity"}, "Profitability relative to shareholder capital"},
	{"roa", "Return on Assets", CategoryProfitability, "Net Income / Total Assets (annualized)", UnitPercent,
		[]string{"net_income", "total_assets"}, "Profitability relative to the balance sheet"},
	{"nim", "Net Interest Margin", CategoryProfitability, "Net Interest Income / Total Assets (annualized)", UnitPercent,
		[]string{"net_interest_income", "total_assets"}, "Spread earned on the asset base"},
	{"efficiency_ratio", "Efficiency Ratio", CategoryProfitability, "Non-Interest Expense / Total Revenue", UnitPercent,
		[]string{"noninterest_expense", "total_revenue"}, "Operating cost per unit of revenue, lower is better"},
	{"ppnr", "Pre-Provision Net Revenue", CategoryProfitability, "NII + Non-Int Income - Non-Int Expense", UnitCurrency,
		[]string{"net_interest_income", "noninterest_income", "noninterest_expense"}, "Earnings power before credit costs"},
	{"eps", "Earnings Per Share", CategoryValuation, "Net Income / Shares Outstanding", UnitCurrency,
		[]string{"net_income", "shares_outstanding"}, "Net income per common share"},
	{"bvps", "Book Value Per Share", CategoryValuation, "Total Equity / Shares Outstanding", UnitCurrency,
		[]string{"total_equity", "shares_outstanding"}, "Shareholders' equity per common share"},
	{"tbvps", "Tangible Book Value Per Share", CategoryValuation, "(Equity - Goodwill - Intangibles) / Shares", UnitCurrency,
		[]string{"total_equity", "goodwill", "intangible_assets", "shares_outstanding"}, "Equity per share excluding acquisition premiums"},
	{"pb", "Price to Book", CategoryValuation, "Price / Book Value Per Share", UnitMultiple,
		[]string{"price", "total_equity", "shares_outstanding"}, "Market price relative to book value"},
	{"pe", "Price to Earnings", CategoryValuation, "Price / Earnings Per Share (annualized)", UnitMultiple,
		[]string{"price", "net_income", "shares_outstanding"}, "Market price relative to earnings"},
	{"ptbv", "Price to Tangible Book", CategoryValuation, "Price / Tangible Book Value Per Share", UnitMultiple,
		[]string{"price", "total_equity", "goodwill", "intangible_assets", "shares_outstanding"}, "Market price relative to tangible book value"},
	{"equity_to_assets", "Equity to Assets", CategoryCapital, "Total Equity / Total Assets", UnitPercent,
		[]string{"total_equity", "total_assets"}, "Basic capital adequacy measure"},
	{"tce_ratio", "Tangible Common Equity Ratio", CategoryCapital, "Tangible Equity / Tangible Assets", UnitPercent,
		[]string{"total_equity", "goodwill", "intangible_assets", "total_assets"}, "Conservative capital measure used in stress testing"},
	{"leverage", "Leverage Ratio", CategoryCapital, "Total Assets / Total Equity", UnitMultiple,
		[]string{"total_assets", "total_equity"}, "Balance sheet size per unit of equity"},
	{"ldr", "Loan-to-Deposit Ratio", CategoryLiquidity, "Net Loans / Total Deposits", UnitPercent,
		[]string{"loans_net", "total_deposits"}, "Lending relative to the deposit base"},
	{"allowance_coverage", "Allowance Coverage", CategoryAssetQuality, "ALLL / Gross Loans", UnitPercent,
		[]string{"allowance_for_loan_losses", "loans_net"}, "Reserve coverage of loan portfolio"},
	{"nco_ratio", "Net Charge-Off Ratio (proxy)", CategoryAssetQuality, "Provision for Credit Losses / Net Loans (annualized)", UnitPercent,
		[]string{"provision_for_credit_losses", "loans_net"}, "Credit cost approximated by the provision"},
}

// GrowthConcepts are the line items growth rates are derived for
var GrowthConcepts = []string{"total_assets", "total_deposits", "loans_net", "net_income", "total_revenue"}

var allDefinitions, definitionIndex = func() ([]Definition, map[string]int) {
	all := append([]Definition(nil), definitions...)
	for _, concept := range GrowthConcepts {
		display := registry.MustLookup(concept).DisplayName
		all = append(all,
			Definition{
				Name:        concept + "_yoy",
				DisplayName: display + " YoY Growth",
				Category:    CategoryGrowth,
				Formula:     "(Current - Prior Year) / |Prior Year|",
				Unit:        UnitPercent,
				Inputs:      []string{concept},
				Description: "Change against the same fiscal period one year earlier",
			},
			Definition{
				Name:        concept + "_qoq",
				DisplayName: display + " QoQ Growth",
				Category:    CategoryGrowth,
				Formula:     "(Current - Prior Quarter) / |Prior Quarter|",
				Unit:        UnitPercent,
				Inputs:      []string{concept},
				Description: "Change against the previous fiscal quarter",
			},
		)
	}
	idx := make(map[string]int, len(all))
	for i, d := range all {
		idx[d.Name] = i
	}
	return all, idx
}()

// Definitions returns every KPI definition, ratio KPIs first then growth
func Definitions() []Definition {
	out := make([]Definition, len(allDefinitions))
	copy(out, allDefinitions)
	return out
}

// Lookup returns the definition of a KPI
func Lookup(name string) (Definition, error) {
	i, ok := definitionIndex[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown kpi %q", name)
	}
	return allDefinitions[i], nil
}
