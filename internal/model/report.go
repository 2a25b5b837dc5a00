package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// KPIObservation is one derived ratio for one entity-period
type KPIObservation struct {
	EntityID     string       `json:"entity_id"`
	FiscalYear   int          `json:"fiscal_year"`
	FiscalPeriod FiscalPeriod `json:"fiscal_period"`
	AsOf         time.Time    `json:"as_of_date"`
	Name         string       `json:"kpi_name"`
	DisplayName  string       `json:"display_name"`
	Category     string       `json:"category"` // profitability, capital, liquidity, ...
	Unit         string       `json:"unit"`     // percent, currency, multiple
	Value        float64      `json:"value"`
}

// Key returns the fiscal period the observation belongs to
func (o KPIObservation) Key() PeriodKey {
	return PeriodKey{EntityID: o.EntityID, FiscalYear: o.FiscalYear, FiscalPeriod: o.FiscalPeriod}
}

// Severity indicates how serious a quality warning is
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// QualityWarning records one broken accounting or plausibility rule.
// Warnings are advisory and never stop a run.
type QualityWarning struct {
	CheckName string                 `json:"check_name"`
	Severity  Severity               `json:"severity"`
	EntityID  string                 `json:"entity_id"`
	Period    string                 `json:"period"` // e.g. "2024-Q1", or "all"
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// PriceBar is one daily OHLCV observation
type PriceBar struct {
	Ticker string          `json:"ticker"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Company is the filer metadata shown in run summaries
type Company struct {
	Ticker string `json:"ticker"`
	CIK    string `json:"cik"` // Zero-padded to 10 digits
	Name   string `json:"name,omitempty"`
	SIC    string `json:"sic,omitempty"`
}

// LLMSummary contains an optional narrative summary of a run.
// It is generated after all numbers are final and never feeds back into them.
type LLMSummary struct {
	Enabled       bool     `json:"enabled"`
	Provider      string   `json:"provider,omitempty"` // openai, ollama
	Model         string   `json:"model,omitempty"`
	StrictNumbers bool     `json:"strict_numbers"` // Whether numeric allow-listing was enforced
	SummaryMD     string   `json:"summary_md,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
