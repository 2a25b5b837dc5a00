package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/banklab/internal/model"
)

// RawFactColumns is the raw-fact table header. filed_date is optional on read.
var RawFactColumns = []string{
	"date", "entity_id", "concept_tag", "value", "unit",
	"fiscal_period", "fiscal_year", "source_form", "filed_date",
}

// PriceColumns is the daily price table header
var PriceColumns = []string{"date", "ticker", "open", "high", "low", "close", "volume"}

// WriteRawFacts writes facts as a CSV table. NaN values are written empty.
func WriteRawFacts(w io.Writer, facts []model.RawFact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawFactColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, f := range facts {
		rec := []string{
			formatDate(f.PeriodEnd),
			f.EntityID,
			f.ConceptTag,
			FormatFloat(f.Value),
			string(f.Unit),
			string(f.FiscalPeriod),
			formatInt(f.FiscalYear),
			f.SourceForm,
			formatDate(f.Filed),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write fact: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRawFacts parses a raw-fact table. Columns may appear in any order;
// every column except filed_date is required.
func ReadRawFacts(r io.Reader) ([]model.RawFact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty table: %w", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, c := range RawFactColumns {
		if c == "filed_date" {
			continue
		}
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("column %q missing: %w", c, ErrSchema)
		}
	}

	var facts []model.RawFact
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		f, err := parseFact(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func parseFact(rec []string, cols map[string]int) (model.RawFact, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	end, err := time.Parse(time.DateOnly, get("date"))
	if err != nil {
		return model.RawFact{}, fmt.Errorf("date %q: %w", get("date"), ErrSchema)
	}
	value := math.NaN()
	if v := get("value"); v != "" {
		if value, err = strconv.ParseFloat(v, 64); err != nil {
			return model.RawFact{}, fmt.Errorf("value %q: %w", v, ErrSchema)
		}
	}
	var fy int
	if v := get("fiscal_year"); v != "" {
		// spreadsheet exports may write 2024.0
		y, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.RawFact{}, fmt.Errorf("fiscal_year %q: %w", v, ErrSchema)
		}
		fy = int(y)
	}
	var filed time.Time
	if v := get("filed_date"); v != "" {
		if filed, err = time.Parse(time.DateOnly, v); err != nil {
			return model.RawFact{}, fmt.Errorf("filed_date %q: %w", v, ErrSchema)
		}
	}

	return model.RawFact{
		EntityID:     get("entity_id"),
		ConceptTag:   get("concept_tag"),
		PeriodEnd:    end,
		Value:        value,
		Unit:         model.Unit(get("unit")),
		FiscalYear:   fy,
		FiscalPeriod: model.FiscalPeriod(get("fiscal_period")),
		SourceForm:   get("source_form"),
		Filed:        filed,
	}, nil
}

// WritePrices writes bars as a CSV table
func WritePrices(w io.Writer, bars []model.PriceBar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PriceColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bars {
		rec := []string{
			formatDate(b.Date), b.Ticker,
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write bar: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPrices parses a table written by WritePrices
func ReadPrices(r io.Reader) ([]model.PriceBar, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["ticker"]; !ok {
		return nil, fmt.Errorf("column \"ticker\" missing: %w", ErrSchema)
	}

	var bars []model.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		bar, err := parseBar(rec[cols["ticker"]], rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// FormatFloat renders v without exponent noise; NaN and Inf render empty
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
