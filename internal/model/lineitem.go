package model

import "time"

// Category groups line items by financial statement
type Category string

const (
	CategoryIncomeStatement Category = "income_statement"
	CategoryBalanceSheet    Category = "balance_sheet"
	CategoryCashFlow        Category = "cash_flow"
	CategoryShares          Category = "shares"
)

// Sign is the sign a line item is expected to carry
type Sign string

const (
	SignPositive Sign = "positive"
	SignAny      Sign = "any"
)

// LineItemDefinition maps one standardized concept to its source tags.
// Tags are in priority order; the first tag with a matching fact wins.
type LineItemDefinition struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Category     Category `json:"category"`
	Tags         []string `json:"tags"`
	IsFlow       bool     `json:"is_flow"`       // Period flow (income, cash flow) vs point-in-time balance
	ExpectedSign Sign     `json:"expected_sign"` // positive or any
	Unit         Unit     `json:"unit"`          // Unit filter applied to candidate facts
	Description  string   `json:"description,omitempty"`
}

// PrimaryTag returns the highest priority tag
func (d LineItemDefinition) PrimaryTag() string {
	if len(d.Tags) == 0 {
		return ""
	}
	return d.Tags[0]
}

// FallbackTags returns every tag after the primary one
func (d LineItemDefinition) FallbackTags() []string {
	if len(d.Tags) < 2 {
		return nil
	}
	return d.Tags[1:]
}

// NormalizedLineItem is the single resolved value for one entity, period and concept
type NormalizedLineItem struct {
	EntityID     string       `json:"entity_id"`
	FiscalYear   int          `json:"fiscal_year"`
	FiscalPeriod FiscalPeriod `json:"fiscal_period"`
	AsOf         time.Time    `json:"as_of_date"` // Latest period end seen in the period's facts
	Concept      string       `json:"concept_name"`
	DisplayName  string       `json:"display_name"`
	Category     Category     `json:"category"`
	Value        float64      `json:"value"`
	SourceTag    string       `json:"source_tag"` // Tag that won resolution
}

// Key returns the fiscal period the item belongs to
func (n NormalizedLineItem) Key() PeriodKey {
	return PeriodKey{EntityID: n.EntityID, FiscalYear: n.FiscalYear, FiscalPeriod: n.FiscalPeriod}
}
