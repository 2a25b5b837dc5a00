package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/banklab/internal/model"
)

func TestLookup(t *testing.T) {
	def, err := Lookup("total_assets")
	require.NoError(t, err)

	assert.Equal(t, "Total Assets", def.DisplayName)
	assert.Equal(t, model.CategoryBalanceSheet, def.Category)
	assert.Equal(t, []string{"us-gaap:Assets"}, def.Tags)
	assert.False(t, def.IsFlow)
	assert.Equal(t, model.UnitUSD, def.Unit)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("tier1_leverage")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConcept))
	assert.Contains(t, err.Error(), "tier1_leverage")
}

func TestLookup_ReturnsCopy(t *testing.T) {
	def := MustLookup("net_income")
	def.Tags[0] = "us-gaap:Tampered"

	again := MustLookup("net_income")
	assert.Equal(t, "us-gaap:NetIncomeLoss", again.Tags[0])
}

func TestAll_TableInvariants(t *testing.T) {
	defs := All()
	require.NotEmpty(t, defs)
	require.NoError(t, Validate(defs))

	assert.Equal(t, len(defs), len(Names()))
	assert.Equal(t, "total_revenue", defs[0].Name)

	for _, def := range defs {
		assert.NotEmpty(t, def.DisplayName, def.Name)
		assert.Contains(t, []model.Sign{model.SignPositive, model.SignAny}, def.ExpectedSign, def.Name)
		if def.Category == model.CategoryShares {
			assert.Equal(t, model.UnitShares, def.Unit, def.Name)
		} else {
			assert.Equal(t, model.UnitUSD, def.Unit, def.Name)
		}
	}
}

func TestFlowClassification(t *testing.T) {
	tests := []struct {
		name string
		flow bool
	}{
		{"net_income", true},
		{"operating_cash_flow", true},
		{"weighted_avg_shares_basic", true},
		{"total_assets", false},
		{"shares_outstanding", false},
		{"total_deposits", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.flow, MustLookup(tt.name).IsFlow)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		defs    []model.LineItemDefinition
		wantErr string
	}{
		{
			name:    "empty tags",
			defs:    []model.LineItemDefinition{{Name: "x", Unit: model.UnitUSD}},
			wantErr: "no tags",
		},
		{
			name: "duplicate name",
			defs: []model.LineItemDefinition{
				{Name: "x", Tags: []string{"us-gaap:A"}, Unit: model.UnitUSD},
				{Name: "x", Tags: []string{"us-gaap:B"}, Unit: model.UnitUSD},
			},
			wantErr: "duplicate",
		},
		{
			name:    "bad namespace",
			defs:    []model.LineItemDefinition{{Name: "x", Tags: []string{"ifrs-full:Assets"}, Unit: model.UnitUSD}},
			wantErr: "namespace",
		},
		{
			name: "dei and srt allowed",
			defs: []model.LineItemDefinition{
				{Name: "x", Tags: []string{"dei:EntityCommonStockSharesOutstanding", "srt:Foo"}, Unit: model.UnitShares},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.defs)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestByCategory(t *testing.T) {
	shares := ByCategory(model.CategoryShares)
	require.Len(t, shares, 3)
	assert.Equal(t, "shares_outstanding", shares[0].Name)
}

func TestDataDictionary(t *testing.T) {
	entries := DataDictionary()
	require.Len(t, entries, len(Names()))

	var revenue, assets DictionaryEntry
	for _, e := range entries {
		switch e.LineItem {
		case "total_revenue":
			revenue = e
		case "total_assets":
			assets = e
		}
	}

	assert.Equal(t, "us-gaap:Revenues", revenue.PrimaryTag)
	assert.Equal(t, "us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax, us-gaap:SalesRevenueNet, us-gaap:InterestAndDividendIncomeOperating", revenue.FallbackTags)
	assert.True(t, revenue.IsFlow)
	assert.Equal(t, "", assets.FallbackTags)
}

func TestNamesHaveWideRowFields(t *testing.T) {
	for _, name := range Names() {
		var row model.WideRow
		row.Set(name, 1)
		assert.Nil(t, row.Extra, "%s should map to a WideRow field", name)
	}
}
