package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/ppiankov/banklab/internal/model"
)

// Options controls how CalculateAll evaluates a row
type Options struct {
	// Annualize scales flow-over-stock ratios of quarterly rows by PeriodsPerYear.
	// Full-year rows are never scaled.
	Annualize      bool
	PeriodsPerYear int

	// Price is the share price at the row's as-of date. Nil leaves the
	// price-based ratios undefined.
	Price *float64
}

// DefaultOptions annualizes quarterly rows by 4
func DefaultOptions() Options {
	return Options{Annualize: true, PeriodsPerYear: 4}
}

func (o Options) periodsFor(p model.FiscalPeriod) int {
	if !o.Annualize || !p.IsQuarter() {
		return 1
	}
	if o.PeriodsPerYear <= 0 {
		return 4
	}
	return o.PeriodsPerYear
}

// shares prefers period-end shares outstanding and falls back to the
// weighted average basic count when it is absent
func shares(row model.WideRow) float64 {
	if row.SharesOutstanding != nil && !math.IsNaN(*row.SharesOutstanding) {
		return *row.SharesOutstanding
	}
	return model.OrNaN(row.WeightedAvgSharesBasic)
}

// CalculateAll evaluates every ratio KPI against one row. Undefined values
// are present as NaN; callers filter them before persisting.
func CalculateAll(row model.WideRow, opts Options) map[string]float64 {
	periods := opts.periodsFor(row.FiscalPeriod)

	netIncome := model.OrNaN(row.NetIncome)
	equity := model.OrNaN(row.TotalEquity)
	assets := model.OrNaN(row.TotalAssets)
	nii := model.OrNaN(row.NetInterestIncome)
	loans := model.OrNaN(row.LoansNet)
	goodwill := model.OrNaN(row.Goodwill)
	intangibles := model.OrNaN(row.IntangibleAssets)
	sh := shares(row)

	eps := EarningsPerShare(netIncome, sh)
	bvps := BookValuePerShare(equity, sh)
	tbvps := TangibleBookValuePerShare(equity, goodwill, intangibles, sh)
	price := model.OrNaN(opts.Price)

	return map[string]float64{
		"roe":              ReturnOnEquity(netIncome, equity, periods),
		"roa":              ReturnOnAssets(netIncome, assets, periods),
		"nim":              NetInterestMargin(nii, assets, periods),
		"efficiency_ratio": EfficiencyRatio(model.OrNaN(row.NoninterestExpense), model.OrNaN(row.TotalRevenue)),
		"ppnr":             PreProvisionNetRevenue(nii, model.OrNaN(row.NoninterestIncome), model.OrNaN(row.NoninterestExpense)),

		"eps":   eps,
		"bvps":  bvps,
		"tbvps": tbvps,
		"pb":    PriceToBook(price, bvps),
		"pe":    PriceToEarnings(price, annualize(eps, periods)),
		"ptbv":  PriceToTangibleBook(price, tbvps),

		"equity_to_assets": EquityToAssets(equity, assets),
		"tce_ratio":        TangibleEquityRatio(equity, goodwill, intangibles, assets),
		"leverage":         LeverageRatio(assets, equity),

		"ldr": LoanToDepositRatio(loans, model.OrNaN(row.TotalDeposits)),

		"allowance_coverage": AllowanceCoverageRatio(model.OrNaN(row.AllowanceForLoanLosses), loans),
		"nco_ratio":          NetChargeOffRatio(model.OrNaN(row.ProvisionForCreditLosses), loans, periods),
	}
}

// PriceLookup returns the share price for an entity on a date
type PriceLookup func(entityID string, asOf time.Time) (float64, bool)

// Observations evaluates every row and returns the defined KPIs in long
// form, ordered by period then definition order. prices may be nil.
func Observations(rows []model.WideRow, opts Options, prices PriceLookup) []model.KPIObservation {
	var out []model.KPIObservation
	for _, row := range rows {
		rowOpts := opts
		rowOpts.Price = nil
		if prices != nil {
			if p, ok := prices(row.EntityID, row.AsOf); ok {
				rowOpts.Price = model.Float(p)
			}
		}

		values := CalculateAll(row, rowOpts)
		for _, def := range definitions {
			v, ok := values[def.Name]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			out = append(out, observation(row, def, v))
		}
	}
	return out
}

func observation(row model.WideRow, def Definition, v float64) model.KPIObservation {
	return model.KPIObservation{
		EntityID:     row.EntityID,
		FiscalYear:   row.FiscalYear,
		FiscalPeriod: row.FiscalPeriod,
		AsOf:         row.AsOf,
		Name:         def.Name,
		DisplayName:  def.DisplayName,
		Category:     def.Category,
		Unit:         def.Unit,
		Value:        v,
	}
}

// SortObservations orders observations by period, then KPI definition order
func SortObservations(obs []model.KPIObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return definitionIndex[a.Name] < definitionIndex[b.Name]
	})
}
