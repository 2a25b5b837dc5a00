// Package store persists pipeline tables as CSV files, an XLSX workbook and
// optionally a Postgres database.
package store

import (
	"math"
	"strconv"
	"time"

	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/registry"
	"github.com/ppiankov/banklab/internal/validate"
)

// Output file names under the processed directory
const (
	FundamentalsFile = "fundamentals_quarterly.csv"
	WideFile         = "fundamentals_quarterly_wide.csv"
	KPIFile          = "kpis_quarterly.csv"
	QualityFile      = "quality_report.csv"
	DictionaryFile   = "data_dictionary.csv"
	WorkbookFile     = "fundamentals.xlsx"
	SummaryFile      = "analyst_summary.md"
)

// Table is a named grid shared by the CSV and XLSX writers. Cells hold
// string, float64, int, bool or time.Time values; NaN floats are blank.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// NormalizedColumns is the long fundamentals table header
var NormalizedColumns = []string{
	"entity_id", "fiscal_year", "fiscal_period", "as_of_date",
	"concept_name", "display_name", "category", "value", "source_tag",
}

// KPIColumns is the KPI table header
var KPIColumns = []string{
	"entity_id", "fiscal_year", "fiscal_period", "as_of_date",
	"kpi_name", "display_name", "category", "unit", "value",
}

// DictionaryColumns is the data dictionary header
var DictionaryColumns = []string{
	"line_item", "display_name", "category", "is_flow", "expected_sign",
	"unit", "primary_tag", "fallback_tags", "description",
}

// NormalizedTable builds the long fundamentals table
func NormalizedTable(items []model.NormalizedLineItem) Table {
	t := Table{Name: "normalized", Header: NormalizedColumns}
	for _, it := range items {
		t.Rows = append(t.Rows, []any{
			it.EntityID, it.FiscalYear, string(it.FiscalPeriod), it.AsOf,
			it.Concept, it.DisplayName, string(it.Category), it.Value, it.SourceTag,
		})
	}
	return t
}

// WideTable builds one row per entity-period with a column per concept
// present anywhere in rows
func WideTable(rows []model.WideRow) Table {
	cols := model.WideColumns(rows)
	t := Table{
		Name:   "wide",
		Header: append([]string{"entity_id", "fiscal_year", "fiscal_period", "as_of_date"}, cols...),
	}
	for _, r := range rows {
		row := []any{r.EntityID, r.FiscalYear, string(r.FiscalPeriod), r.AsOf}
		for _, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				v = math.NaN()
			}
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// KPITable builds the KPI observation table
func KPITable(obs []model.KPIObservation) Table {
	t := Table{Name: "kpis", Header: KPIColumns}
	for _, o := range obs {
		t.Rows = append(t.Rows, []any{
			o.EntityID, o.FiscalYear, string(o.FiscalPeriod), o.AsOf,
			o.Name, o.DisplayName, o.Category, o.Unit, o.Value,
		})
	}
	return t
}

// QualityTable builds the quality report table
func QualityTable(report *validate.Report) Table {
	t := Table{Name: "quality", Header: validate.CSVHeader}
	if report == nil {
		return t
	}
	for _, w := range report.Warnings {
		t.Rows = append(t.Rows, []any{w.CheckName, string(w.Severity), w.EntityID, w.Period, w.Message})
	}
	return t
}

// DictionaryTable documents every registered line item
func DictionaryTable() Table {
	t := Table{Name: "dictionary", Header: DictionaryColumns}
	for _, e := range registry.DataDictionary() {
		t.Rows = append(t.Rows, []any{
			e.LineItem, e.DisplayName, string(e.Category), e.IsFlow, string(e.ExpectedSign),
			string(e.Unit), e.PrimaryTag, e.FallbackTags, e.Description,
		})
	}
	return t
}

// cellString renders a cell for CSV output
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.DateOnly)
	default:
		return ""
	}
}

func (t Table) records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellString(v)
		}
		out = append(out, rec)
	}
	return out
}
