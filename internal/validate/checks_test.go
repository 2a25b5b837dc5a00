package validate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/banklab/internal/model"
)

func balanceRow(assets, liabilities, equity float64) model.WideRow {
	return model.WideRow{
		EntityID:         "JPM",
		FiscalYear:       2024,
		FiscalPeriod:     model.Q1,
		TotalAssets:      model.Float(assets),
		TotalLiabilities: model.Float(liabilities),
		TotalEquity:      model.Float(equity),
	}
}

func TestBalanceSheetIdentity_Imbalanced(t *testing.T) {
	res := BalanceSheetIdentity([]model.WideRow{balanceRow(100, 80, 10)}, 0.01)

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, CheckBalanceSheetIdentity, w.CheckName)
	assert.Equal(t, model.SeverityWarning, w.Severity)
	assert.Equal(t, "2024-Q1", w.Period)
	assert.Contains(t, w.Message, "doesn't balance")
	assert.InDelta(t, 10.0, w.Details["diff"], 1e-9)
	assert.InDelta(t, 0.1, w.Details["rel_diff"], 1e-9)
}

func TestBalanceSheetIdentity_Balanced(t *testing.T) {
	res := BalanceSheetIdentity([]model.WideRow{balanceRow(100, 80, 20)}, 0.01)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, CheckBalanceSheetIdentity, res.Check)
}

func TestBalanceSheetIdentity_ThousandsSeparators(t *testing.T) {
	res := BalanceSheetIdentity([]model.WideRow{balanceRow(1000, 800, 100)}, 0.01)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Balance sheet doesn't balance: A=1,000, L+E=900", res.Warnings[0].Message)
}

func TestBalanceSheetIdentity_SkipsIncompleteAndZero(t *testing.T) {
	partial := balanceRow(100, 80, 10)
	partial.TotalLiabilities = nil

	res := BalanceSheetIdentity([]model.WideRow{partial, balanceRow(0, 5, 5)}, 0.01)
	assert.Empty(t, res.Warnings)
}

func TestBalanceSheetIdentity_WithinTolerance(t *testing.T) {
	res := BalanceSheetIdentity([]model.WideRow{balanceRow(1000, 900, 95)}, 0.01)
	assert.Empty(t, res.Warnings)
}

func TestPositiveValues(t *testing.T) {
	row := balanceRow(100, 80, 20)
	row.TotalDeposits = model.Float(-5)
	row.NetIncome = model.Float(-50) // losses are allowed

	res := PositiveValues([]model.WideRow{row})

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, model.SeverityError, w.Severity)
	assert.Equal(t, "total_deposits is negative: -5", w.Message)
	assert.Equal(t, "total_deposits", w.Details["column"])
}

func TestReasonableRatios(t *testing.T) {
	obs := []model.KPIObservation{
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "leverage", Value: 2},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "roe", Value: 0.9},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "roa", Value: 0.01},
		{EntityID: "JPM", FiscalYear: 2024, FiscalPeriod: model.Q1, Name: "nim", Value: 5},
	}

	res := ReasonableRatios(obs)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "leverage is unusually low: 2.0000", res.Warnings[0].Message)
	assert.Equal(t, "roe is unusually high: 0.9000", res.Warnings[1].Message)
	for _, w := range res.Warnings {
		assert.Equal(t, model.SeverityWarning, w.Severity)
		assert.Equal(t, "2024-Q1", w.Period)
	}
}

func TestTemporalConsistency(t *testing.T) {
	q4 := balanceRow(100, 80, 20)
	q4.FiscalYear, q4.FiscalPeriod = 2023, model.Q4
	q1 := balanceRow(200, 170, 30) // assets double, equity +50%
	q2 := balanceRow(210, 178, 32)
	q2.FiscalPeriod = model.Q2

	res := TemporalConsistency([]model.WideRow{q2, q1, q4}, 0.5)

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, model.SeverityInfo, w.Severity)
	assert.Equal(t, "2024-Q1", w.Period)
	assert.Equal(t, "total_assets", w.Details["column"])
	assert.Contains(t, w.Message, "2023-Q4")
}

func TestCompleteness(t *testing.T) {
	full := balanceRow(100, 80, 20)
	full.NetIncome = model.Float(1)
	sparse := model.WideRow{EntityID: "BAC", FiscalYear: 2024, FiscalPeriod: model.Q1, TotalAssets: model.Float(10)}

	res := Completeness([]model.WideRow{full, sparse}, nil)

	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.Equal(t, "BAC", w.EntityID)
		assert.Equal(t, "all", w.Period)
		assert.Equal(t, model.SeverityError, w.Severity)
	}
	assert.Equal(t, "Missing required line item: total_equity", res.Warnings[0].Message)
	assert.Equal(t, "Missing required line item: net_income", res.Warnings[1].Message)
}

func TestRunAll(t *testing.T) {
	row := balanceRow(100, 80, 10)
	row.NetIncome = model.Float(1)

	opts := DefaultOptions()
	report := RunAll([]model.WideRow{row}, nil, opts)
	assert.Equal(t, []string{
		CheckBalanceSheetIdentity, CheckPositiveValues, CheckTemporalConsistency,
		CheckCompleteness, CheckReasonableRatios,
	}, report.ChecksRun)
	assert.False(t, report.HasErrors())

	opts.IncludeKPIChecks = false
	report = RunAll([]model.WideRow{row}, nil, opts)
	assert.NotContains(t, report.ChecksRun, CheckReasonableRatios)
}

func TestReport_SummaryAndErrors(t *testing.T) {
	report := &Report{}
	report.Merge(
		Result{Check: "a", Warnings: []model.QualityWarning{
			{Severity: model.SeverityError, EntityID: "WFC"},
			{Severity: model.SeverityInfo, EntityID: "JPM"},
		}},
		Result{Check: "b"},
	)

	s := report.Summary()
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 0, s.Warnings)
	assert.Equal(t, 1, s.Info)
	assert.Equal(t, []string{"JPM", "WFC"}, s.Entities)
	assert.True(t, report.HasErrors())
	assert.Equal(t, []string{"a", "b"}, report.ChecksRun)
	assert.Len(t, report.BySeverity(model.SeverityError), 1)
}

func TestReport_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Report{}).WriteCSV(&buf))
	assert.Equal(t, "check_name,severity,entity_id,period,message\n", buf.String())

	report := &Report{}
	report.Merge(BalanceSheetIdentity([]model.WideRow{balanceRow(1000, 800, 100)}, 0.01))
	buf.Reset()
	require.NoError(t, report.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `balance_sheet_identity,warning,JPM,2024-Q1,"Balance sheet doesn't balance: A=1,000, L+E=900"`, lines[1])
}
