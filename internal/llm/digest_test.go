package llm

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/banklab/internal/model"
)

func TestBuildDigest_LatestPeriodOnly(t *testing.T) {
	kpis := []model.KPIObservation{
		{EntityID: "MS", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "roe", DisplayName: "Return on Equity", Unit: "percent", Value: 0.12},
		{EntityID: "JPM", FiscalYear: 2023, FiscalPeriod: model.Q4, Name: "roe", DisplayName: "Return on Equity", Unit: "percent", Value: 0.15},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "leverage", DisplayName: "Leverage", Unit: "multiple", Value: 12.5},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "roe", DisplayName: "Return on Equity", Unit: "percent", Value: 0.1733},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "net_income_yoy", DisplayName: "Net Income YoY", Unit: "percent", Value: 0.05},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "pb", DisplayName: "Price to Book", Unit: "multiple", Value: math.NaN()},
	}
	warnings := []model.QualityWarning{
		{CheckName: "balance_sheet_identity", Severity: model.SeverityWarning, EntityID: "MS", Period: "2024-Q1", Message: "Balance sheet doesn't balance"},
		{CheckName: "temporal_consistency", Severity: model.SeverityInfo, EntityID: "JPM", Period: "2024-Q1", Message: "changed"},
	}

	d := BuildDigest("run-1", kpis, warnings)

	if len(d.Entities) != 2 || d.Entities[0].EntityID != "JPM" || d.Entities[1].EntityID != "MS" {
		t.Fatalf("Expected JPM then MS, got %+v", d.Entities)
	}
	jpm := d.Entities[0]
	if jpm.Period != "2024-Q1" {
		t.Errorf("Expected latest period 2024-Q1, got %s", jpm.Period)
	}
	var names []string
	for _, m := range jpm.Metrics {
		names = append(names, m.Name)
	}
	if !reflect.DeepEqual(names, []string{"roe", "leverage"}) {
		t.Errorf("Expected roe, leverage in display order, got %v", names)
	}
	if jpm.Metrics[0].Formatted != "17.33%" {
		t.Errorf("Expected 17.33%%, got %s", jpm.Metrics[0].Formatted)
	}
	if d.Quality.Warnings != 1 || d.Quality.Info != 1 || d.Quality.Errors != 0 {
		t.Errorf("Unexpected quality counts: %+v", d.Quality)
	}
	if len(d.Quality.Messages) != 1 || !strings.HasPrefix(d.Quality.Messages[0], "MS 2024-Q1") {
		t.Errorf("Unexpected quality messages: %v", d.Quality.Messages)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{0.1733, "percent", "17.33%"},
		{12.5, "multiple", "12.50x"},
		{4.44, "currency", "$4.44"},
		{1.23456, "ratio", "1.2346"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatValue(%v, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestExtractNumbers(t *testing.T) {
	got := ExtractNumbers("Assets of 1,234,000 rose 17.30% and 17.3% again in 2024")
	want := []string{"1234000", "17.3", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractNumbers = %v, want %v", got, want)
	}
}

func TestUnlistedNumbers(t *testing.T) {
	allowed := []string{"17.33", "2024", "12.50"}

	if bad := UnlistedNumbers("ROE 17.33% in 2024 at 12.5x", allowed); len(bad) != 0 {
		t.Errorf("Expected no unlisted numbers, got %v", bad)
	}
	if bad := UnlistedNumbers("ROE 17.4%", allowed); !reflect.DeepEqual(bad, []string{"17.4"}) {
		t.Errorf("Expected [17.4], got %v", bad)
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	d := testDigest()
	prompt := BuildPrompt(d, AllowedNumbers(d))

	for _, element := range []string{
		"Quote only numbers that appear in the data below",
		"Do not compute new ratios",
		"Banks: 1",
		"## JPM (2024-Q1)",
		"- Return on Equity: 17.33%",
		"- Leverage: 12.50x",
		"## Data quality",
	} {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain '%s'", element)
		}
	}
	if strings.Contains(prompt, "No figures available") {
		t.Error("Did not expect the no-figures notice")
	}
}

func TestBuildPrompt_NoMetrics(t *testing.T) {
	d := Digest{Entities: []EntityDigest{{EntityID: "JPM", Period: "2024-Q1"}}}

	prompt := BuildPrompt(d, nil)

	if !strings.Contains(prompt, "- no metrics available") {
		t.Error("Expected missing metrics notice")
	}
	if !strings.Contains(prompt, "No figures available") {
		t.Error("Expected no-figures notice")
	}
}
