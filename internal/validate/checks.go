package validate

import (
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ppiankov/banklab/internal/model"
)

// Check names
const (
	CheckBalanceSheetIdentity = "balance_sheet_identity"
	CheckPositiveValues       = "positive_values"
	CheckReasonableRatios     = "reasonable_ratios"
	CheckTemporalConsistency  = "temporal_consistency"
	CheckCompleteness         = "completeness"
)

// NonNegativeConcepts must never be reported below zero
var NonNegativeConcepts = []string{
	"total_assets",
	"total_liabilities",
	"total_equity",
	"total_deposits",
	"loans_net",
	"shares_outstanding",
}

// RequiredConcepts is the minimal set every entity must disclose
var RequiredConcepts = []string{"total_assets", "total_equity", "net_income"}

// Bounds is a plausible [Low, High] range for a KPI
type Bounds struct {
	Low, High float64
}

// RatioBounds are the plausibility ranges checked against KPI values
var RatioBounds = map[string]Bounds{
	"leverage": {4, 20},
	"roe":      {-0.50, 0.50},
	"roa":      {-0.10, 0.10},
}

// TemporalConcepts are the balances checked for abrupt quarter changes
var TemporalConcepts = []string{"total_assets", "total_equity"}

var printer = message.NewPrinter(language.English)

func period(k model.PeriodKey) string {
	return k.Label()
}

// BalanceSheetIdentity flags rows where assets differ from liabilities plus
// equity by more than tolerance, relative to assets. Rows missing any of the
// three or with zero assets are skipped.
func BalanceSheetIdentity(rows []model.WideRow, tolerance float64) Result {
	res := Result{Check: CheckBalanceSheetIdentity}
	for _, row := range rows {
		if row.TotalAssets == nil || row.TotalLiabilities == nil || row.TotalEquity == nil {
			continue
		}
		assets, liabilities, equity := *row.TotalAssets, *row.TotalLiabilities, *row.TotalEquity
		if math.IsNaN(assets) || math.IsNaN(liabilities) || math.IsNaN(equity) || assets == 0 {
			continue
		}

		expected := liabilities + equity
		diff := math.Abs(assets - expected)
		relDiff := diff / math.Abs(assets)
		if relDiff <= tolerance {
			continue
		}
		res.Warnings = append(res.Warnings, model.QualityWarning{
			CheckName: CheckBalanceSheetIdentity,
			Severity:  model.SeverityWarning,
			EntityID:  row.EntityID,
			Period:    period(row.Key()),
			Message:   printer.Sprintf("Balance sheet doesn't balance: A=%.0f, L+E=%.0f", assets, expected),
			Details:   map[string]interface{}{"diff": diff, "rel_diff": relDiff},
		})
	}
	return res
}

// PositiveValues flags negative values of concepts that cannot be negative
func PositiveValues(rows []model.WideRow) Result {
	res := Result{Check: CheckPositiveValues}
	for _, concept := range NonNegativeConcepts {
		for _, row := range rows {
			v, ok := row.Get(concept)
			if !ok || math.IsNaN(v) || v >= 0 {
				continue
			}
			res.Warnings = append(res.Warnings, model.QualityWarning{
				CheckName: CheckPositiveValues,
				Severity:  model.SeverityError,
				EntityID:  row.EntityID,
				Period:    period(row.Key()),
				Message:   printer.Sprintf("%s is negative: %.0f", concept, v),
				Details:   map[string]interface{}{"column": concept, "value": v},
			})
		}
	}
	return res
}

// ReasonableRatios flags KPI values outside RatioBounds
func ReasonableRatios(obs []model.KPIObservation) Result {
	res := Result{Check: CheckReasonableRatios}

	names := make([]string, 0, len(RatioBounds))
	for name := range RatioBounds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := RatioBounds[name]
		for _, o := range obs {
			if o.Name != name || math.IsNaN(o.Value) {
				continue
			}
			var msg string
			switch {
			case o.Value < b.Low:
				msg = printer.Sprintf("%s is unusually low: %.4f", name, o.Value)
			case o.Value > b.High:
				msg = printer.Sprintf("%s is unusually high: %.4f", name, o.Value)
			default:
				continue
			}
			res.Warnings = append(res.Warnings, model.QualityWarning{
				CheckName: CheckReasonableRatios,
				Severity:  model.SeverityWarning,
				EntityID:  o.EntityID,
				Period:    period(o.Key()),
				Message:   msg,
				Details:   map[string]interface{}{"column": name, "value": o.Value, "low": b.Low, "high": b.High},
			})
		}
	}
	return res
}

// TemporalConsistency flags balances that move by more than maxChange
// between consecutive quarters of one entity
func TemporalConsistency(rows []model.WideRow, maxChange float64) Result {
	res := Result{Check: CheckTemporalConsistency}

	quarters := make(map[model.PeriodKey]model.WideRow)
	for _, row := range rows {
		if row.FiscalPeriod.IsQuarter() {
			if _, dup := quarters[row.Key()]; !dup {
				quarters[row.Key()] = row
			}
		}
	}
	keys := make([]model.PeriodKey, 0, len(quarters))
	for k := range quarters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, concept := range TemporalConcepts {
		for _, key := range keys {
			prevKey, ok := key.PreviousQuarter()
			if !ok {
				continue
			}
			prev, ok := quarters[prevKey]
			if !ok {
				continue
			}
			cur, okCur := quarters[key].Get(concept)
			before, okPrev := prev.Get(concept)
			if !okCur || !okPrev || math.IsNaN(cur) || math.IsNaN(before) || before == 0 {
				continue
			}
			change := (cur - before) / math.Abs(before)
			if math.Abs(change) <= maxChange {
				continue
			}
			res.Warnings = append(res.Warnings, model.QualityWarning{
				CheckName: CheckTemporalConsistency,
				Severity:  model.SeverityInfo,
				EntityID:  key.EntityID,
				Period:    period(key),
				Message:   printer.Sprintf("%s changed %.1f%% from %s", concept, change*100, prevKey.Label()),
				Details:   map[string]interface{}{"column": concept, "previous": before, "current": cur, "change": change},
			})
		}
	}
	return res
}

// Completeness flags, per entity, each required concept that never appears
// in any of the entity's rows
func Completeness(rows []model.WideRow, required []string) Result {
	res := Result{Check: CheckCompleteness}
	if required == nil {
		required = RequiredConcepts
	}

	present := make(map[string]map[string]bool)
	var entities []string
	for _, row := range rows {
		if _, ok := present[row.EntityID]; !ok {
			present[row.EntityID] = make(map[string]bool)
			entities = append(entities, row.EntityID)
		}
		for _, c := range row.Concepts() {
			present[row.EntityID][c] = true
		}
	}
	sort.Strings(entities)

	for _, entity := range entities {
		for _, item := range required {
			if present[entity][item] {
				continue
			}
			res.Warnings = append(res.Warnings, model.QualityWarning{
				CheckName: CheckCompleteness,
				Severity:  model.SeverityError,
				EntityID:  entity,
				Period:    "all",
				Message:   "Missing required line item: " + item,
				Details:   map[string]interface{}{"item": item},
			})
		}
	}
	return res
}

// Options controls RunAll
type Options struct {
	BalanceTolerance float64
	MaxChange        float64
	Required         []string
	IncludeKPIChecks bool
}

// DefaultOptions are the standard thresholds
func DefaultOptions() Options {
	return Options{
		BalanceTolerance: 0.01,
		MaxChange:        0.50,
		Required:         RequiredConcepts,
		IncludeKPIChecks: true,
	}
}

// RunAll runs every check. Ratio plausibility only runs when
// IncludeKPIChecks is set, so the pass can run before KPIs exist.
func RunAll(rows []model.WideRow, kpis []model.KPIObservation, opts Options) *Report {
	report := &Report{}
	report.Merge(
		BalanceSheetIdentity(rows, opts.BalanceTolerance),
		PositiveValues(rows),
		TemporalConsistency(rows, opts.MaxChange),
		Completeness(rows, opts.Required),
	)
	if opts.IncludeKPIChecks {
		report.Merge(ReasonableRatios(kpis))
	}
	return report
}
