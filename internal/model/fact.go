package model

import (
	"fmt"
	"time"
)

// Unit is the measurement unit a disclosed value is reported in
type Unit string

const (
	UnitUSD         Unit = "USD"        // Currency totals
	UnitShares      Unit = "shares"     // Share counts
	UnitPure        Unit = "pure"       // Ratios and percentages
	UnitUSDPerShare Unit = "USD/shares" // Per-share amounts
)

// FiscalPeriod is one of the four fiscal quarters or the full fiscal year
type FiscalPeriod string

const (
	Q1 FiscalPeriod = "Q1"
	Q2 FiscalPeriod = "Q2"
	Q3 FiscalPeriod = "Q3"
	Q4 FiscalPeriod = "Q4"
	FY FiscalPeriod = "FY"
)

// Valid reports whether p is a quarter or a full fiscal year
func (p FiscalPeriod) Valid() bool {
	return p.Ordinal() > 0
}

// Ordinal orders periods within a fiscal year: Q1..Q4 then FY. Unknown periods are 0.
func (p FiscalPeriod) Ordinal() int {
	switch p {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	case Q4:
		return 4
	case FY:
		return 5
	default:
		return 0
	}
}

// IsQuarter reports whether p is Q1..Q4
func (p FiscalPeriod) IsQuarter() bool {
	o := p.Ordinal()
	return o >= 1 && o <= 4
}

// Filing form types seen in XBRL company facts
const (
	Form10K  = "10-K"
	Form10Q  = "10-Q"
	Form10KA = "10-K/A"
	Form10QA = "10-Q/A"
	Form8K   = "8-K"
)

// RawFact is one disclosed observation as reported by the filer.
// Value is NaN when the source reported no number.
type RawFact struct {
	EntityID     string       `json:"entity_id"`       // Ticker
	ConceptTag   string       `json:"concept_tag"`     // Taxonomy-qualified tag, e.g. "us-gaap:Assets"
	PeriodEnd    time.Time    `json:"period_end_date"` // Period end (instant date for balances)
	Value        float64      `json:"value"`
	Unit         Unit         `json:"unit"`
	FiscalYear   int          `json:"fiscal_year"`
	FiscalPeriod FiscalPeriod `json:"fiscal_period"`
	SourceForm   string       `json:"source_form"` // 10-K, 10-Q, 8-K, ...
	Filed        time.Time    `json:"filed_date"`
}

// PeriodKey identifies one fiscal period of one entity
type PeriodKey struct {
	EntityID     string       `json:"entity_id"`
	FiscalYear   int          `json:"fiscal_year"`
	FiscalPeriod FiscalPeriod `json:"fiscal_period"`
}

// Label renders the period as "2024-Q1" or "2024-FY"
func (k PeriodKey) Label() string {
	return fmt.Sprintf("%d-%s", k.FiscalYear, k.FiscalPeriod)
}

// Less orders keys by entity, fiscal year, then period ordinal
func (k PeriodKey) Less(o PeriodKey) bool {
	if k.EntityID != o.EntityID {
		return k.EntityID < o.EntityID
	}
	if k.FiscalYear != o.FiscalYear {
		return k.FiscalYear < o.FiscalYear
	}
	return k.FiscalPeriod.Ordinal() < o.FiscalPeriod.Ordinal()
}

// Key returns the fiscal period the fact belongs to
func (f RawFact) Key() PeriodKey {
	return PeriodKey{EntityID: f.EntityID, FiscalYear: f.FiscalYear, FiscalPeriod: f.FiscalPeriod}
}

// PreviousQuarter returns the quarter before k. Q1 steps back to Q4 of the prior year.
func (k PeriodKey) PreviousQuarter() (PeriodKey, bool) {
	switch k.FiscalPeriod {
	case Q1:
		return PeriodKey{EntityID: k.EntityID, FiscalYear: k.FiscalYear - 1, FiscalPeriod: Q4}, true
	case Q2:
		k.FiscalPeriod = Q1
	case Q3:
		k.FiscalPeriod = Q2
	case Q4:
		k.FiscalPeriod = Q3
	default:
		return k, false
	}
	return k, true
}
