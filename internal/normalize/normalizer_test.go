package normalize

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/registry"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fact(tag string, value float64, form, filed string) model.RawFact {
	return model.RawFact{
		EntityID:     "JPM",
		ConceptTag:   tag,
		PeriodEnd:    date("2024-03-31"),
		Value:        value,
		Unit:         model.UnitUSD,
		FiscalYear:   2024,
		FiscalPeriod: model.Q1,
		SourceForm:   form,
		Filed:        date(filed),
	}
}

func findItem(items []model.NormalizedLineItem, concept string) (model.NormalizedLineItem, bool) {
	for _, it := range items {
		if it.Concept == concept {
			return it, true
		}
	}
	return model.NormalizedLineItem{}, false
}

func TestNormalize_PrefersQuarterlyFormOver8K(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:Assets", 900, model.Form8K, "2024-05-10"),
		fact("us-gaap:Assets", 1000, model.Form10Q, "2024-05-01"),
	}

	items := Normalize(facts, 2015)
	item, ok := findItem(items, "total_assets")
	require.True(t, ok)
	assert.Equal(t, 1000.0, item.Value)
	assert.Equal(t, "us-gaap:Assets", item.SourceTag)
}

func TestNormalize_LaterFilingWins(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:Assets", 1000, model.Form10Q, "2024-05-01"),
		fact("us-gaap:Assets", 1010, model.Form10Q, "2025-05-01"),
		fact("us-gaap:Assets", 990, model.Form10Q, "2024-08-01"),
	}

	item, ok := findItem(Normalize(facts, 2015), "total_assets")
	require.True(t, ok)
	assert.Equal(t, 1010.0, item.Value)
}

func TestNormalize_FormPreferenceBeatsRecency(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:Assets", 1000, model.Form10K, "2024-02-01"),
		fact("us-gaap:Assets", 1020, model.Form10KA, "2024-09-01"),
	}

	item, ok := findItem(Normalize(facts, 2015), "total_assets")
	require.True(t, ok)
	assert.Equal(t, 1000.0, item.Value)
}

func TestNormalize_NoPreferredFormFallsBackToRecency(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:Assets", 1000, model.Form8K, "2024-04-15"),
		fact("us-gaap:Assets", 1005, model.Form8K, "2024-06-15"),
		fact("us-gaap:Assets", 1001, "S-4", "2024-05-15"),
	}

	item, ok := findItem(Normalize(facts, 2015), "total_assets")
	require.True(t, ok)
	assert.Equal(t, 1005.0, item.Value)
}

func TestNormalize_UnitFilter(t *testing.T) {
	perShare := fact("us-gaap:NetIncomeLoss", 4.44, model.Form10Q, "2024-05-01")
	perShare.Unit = model.UnitUSDPerShare

	items := Normalize([]model.RawFact{perShare}, 2015)
	_, ok := findItem(items, "net_income")
	assert.False(t, ok, "a per-share fact must never resolve a currency concept")

	total := fact("us-gaap:NetIncomeLoss", 13e9, model.Form10Q, "2024-05-01")
	item, ok := findItem(Normalize([]model.RawFact{perShare, total}, 2015), "net_income")
	require.True(t, ok)
	assert.Equal(t, 13e9, item.Value)
}

func TestNormalize_FirstTagWins(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:ProfitLoss", 14e9, model.Form10Q, "2024-09-01"),
		fact("us-gaap:NetIncomeLoss", 13e9, model.Form10Q, "2024-05-01"),
	}

	item, ok := findItem(Normalize(facts, 2015), "net_income")
	require.True(t, ok)
	assert.Equal(t, 13e9, item.Value)
	assert.Equal(t, "us-gaap:NetIncomeLoss", item.SourceTag)
}

func TestNormalize_NaNFallsThroughToNextTag(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:NetIncomeLoss", math.NaN(), model.Form10Q, "2024-05-01"),
		fact("us-gaap:ProfitLoss", 14e9, model.Form10Q, "2024-05-01"),
	}

	item, ok := findItem(Normalize(facts, 2015), "net_income")
	require.True(t, ok)
	assert.Equal(t, 14e9, item.Value)
	assert.Equal(t, "us-gaap:ProfitLoss", item.SourceTag)
}

func TestNormalize_AllNaNOmitsConcept(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:NetIncomeLoss", math.NaN(), model.Form10Q, "2024-05-01"),
		fact("us-gaap:Assets", 1, model.Form10Q, "2024-05-01"),
	}

	items := Normalize(facts, 2015)
	_, ok := findItem(items, "net_income")
	assert.False(t, ok)
	assert.Len(t, items, 1)
}

func TestNormalize_PeriodAndYearFilter(t *testing.T) {
	old := fact("us-gaap:Assets", 1, model.Form10K, "2015-02-01")
	old.FiscalYear = 2014

	odd := fact("us-gaap:Assets", 2, model.Form10Q, "2024-05-01")
	odd.FiscalPeriod = "H1"

	keep := fact("us-gaap:Assets", 3, model.Form10Q, "2024-05-01")

	items := Normalize([]model.RawFact{old, odd, keep}, 2015)
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0].Value)
	assert.Equal(t, model.Q1, items[0].FiscalPeriod)
}

func TestNormalize_AsOfIsLatestPeriodEndInPeriod(t *testing.T) {
	assets := fact("us-gaap:Assets", 1, model.Form10Q, "2024-05-01")
	income := fact("us-gaap:NetIncomeLoss", 2, model.Form10Q, "2024-05-01")
	income.PeriodEnd = date("2024-04-02")
	other := fact("us-gaap:SomethingUnmapped", 3, model.Form10Q, "2024-05-01")
	other.PeriodEnd = date("2024-04-05")

	items := Normalize([]model.RawFact{assets, income, other}, 2015)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, date("2024-04-05"), it.AsOf, it.Concept)
	}
}

func TestNormalize_SortedOutput(t *testing.T) {
	mk := func(entity string, fy int, fp model.FiscalPeriod, tag string) model.RawFact {
		f := fact(tag, 1, model.Form10Q, "2024-05-01")
		f.EntityID, f.FiscalYear, f.FiscalPeriod = entity, fy, fp
		return f
	}
	facts := []model.RawFact{
		mk("MS", 2023, model.Q1, "us-gaap:Assets"),
		mk("JPM", 2024, model.FY, "us-gaap:Assets"),
		mk("JPM", 2024, model.Q2, "us-gaap:NetIncomeLoss"),
		mk("JPM", 2024, model.Q2, "us-gaap:Assets"),
	}

	items := Normalize(facts, 2015)
	require.Len(t, items, 4)
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = fmt.Sprintf("%s/%d%s/%s", it.EntityID, it.FiscalYear, it.FiscalPeriod, it.Concept)
	}
	assert.Equal(t, []string{
		"JPM/2024Q2/net_income",
		"JPM/2024Q2/total_assets",
		"JPM/2024FY/total_assets",
		"MS/2023Q1/total_assets",
	}, got)
}

func TestNormalize_KeysAreUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tags := []string{
		"us-gaap:Assets", "us-gaap:Liabilities", "us-gaap:StockholdersEquity",
		"us-gaap:NetIncomeLoss", "us-gaap:ProfitLoss", "us-gaap:Deposits",
	}
	forms := []string{model.Form10K, model.Form10Q, model.Form10KA, model.Form8K}
	periods := []model.FiscalPeriod{model.Q1, model.Q2, model.Q3, model.Q4, model.FY}
	units := []model.Unit{model.UnitUSD, model.UnitUSD, model.UnitShares}

	var facts []model.RawFact
	for i := 0; i < 2000; i++ {
		facts = append(facts, model.RawFact{
			EntityID:     []string{"JPM", "MS", "BAC"}[rng.Intn(3)],
			ConceptTag:   tags[rng.Intn(len(tags))],
			PeriodEnd:    date("2020-01-01").AddDate(0, 0, rng.Intn(1500)),
			Value:        rng.Float64() * 1e9,
			Unit:         units[rng.Intn(len(units))],
			FiscalYear:   2018 + rng.Intn(5),
			FiscalPeriod: periods[rng.Intn(len(periods))],
			SourceForm:   forms[rng.Intn(len(forms))],
			Filed:        date("2020-01-01").AddDate(0, 0, rng.Intn(1500)),
		})
	}

	for _, workers := range []int{1, 4} {
		items := New(2015, WithWorkers(workers)).Normalize(facts)
		require.NotEmpty(t, items)

		seen := make(map[string]bool)
		for _, it := range items {
			key := fmt.Sprintf("%s|%d|%s|%s", it.EntityID, it.FiscalYear, it.FiscalPeriod, it.Concept)
			assert.False(t, seen[key], "duplicate key %s", key)
			seen[key] = true
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	facts := []model.RawFact{
		fact("us-gaap:Assets", 1000, model.Form10Q, "2024-05-01"),
		fact("us-gaap:Assets", 1000.5, model.Form10Q, "2024-05-01"),
	}
	first := Normalize(facts, 2015)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, New(2015, WithWorkers(8)).Normalize(facts))
	}
	assert.Equal(t, 1000.0, first[0].Value, "ties keep input order")
}

func TestResolve_CustomStage(t *testing.T) {
	lowest := Stage{
		Name: "lowest_value",
		Apply: func(c []model.RawFact) []model.RawFact {
			best := 0
			for i := range c {
				if c[i].Value < c[best].Value {
					best = i
				}
			}
			return c[best : best+1]
		},
	}
	n := New(2015, WithStages(lowest))

	facts := []model.RawFact{
		fact("us-gaap:Assets", 1000, model.Form10Q, "2024-05-01"),
		fact("us-gaap:Assets", 950, model.Form8K, "2024-04-01"),
	}
	value, tag, ok := n.Resolve(facts, registry.MustLookup("total_assets"))
	require.True(t, ok)
	assert.Equal(t, 950.0, value)
	assert.Equal(t, "us-gaap:Assets", tag)
}

func TestResolve_NoMatch(t *testing.T) {
	n := New(2015)
	value, tag, ok := n.Resolve(nil, registry.MustLookup("goodwill"))
	assert.False(t, ok)
	assert.Empty(t, tag)
	assert.True(t, math.IsNaN(value))
}

func TestPreferForms_PassThrough(t *testing.T) {
	in := []model.RawFact{
		fact("us-gaap:Assets", 1, model.Form8K, "2024-05-01"),
		fact("us-gaap:Assets", 2, "S-1", "2024-05-02"),
	}
	out := PreferForms(DefaultFormPreference...).Apply(in)
	assert.Equal(t, in, out)
}

func TestLatestFiled_TieOnFiledUsesPeriodEnd(t *testing.T) {
	a := fact("us-gaap:Assets", 1, model.Form10Q, "2024-05-01")
	b := fact("us-gaap:Assets", 2, model.Form10Q, "2024-05-01")
	b.PeriodEnd = date("2024-04-01")

	out := LatestFiled().Apply([]model.RawFact{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 2.0, out[0].Value)
}
