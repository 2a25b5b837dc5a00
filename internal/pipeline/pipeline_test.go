package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/banklab/internal/llm"
	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/store"
)

var q1End = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Normalize.Workers = 2
	cfg.Cache.Enabled = false
	cfg.SEC.RequestsPerSecond = 1000
	cfg.SEC.Burst = 10
	cfg.Prices.RequestsPerSecond = 1000
	cfg.HTTP.Timeout = 5 * time.Second
	return cfg
}

func fact(tag string, value float64, unit model.Unit) model.RawFact {
	return model.RawFact{
		EntityID: "JPM", ConceptTag: tag, PeriodEnd: q1End, Value: value, Unit: unit,
		FiscalYear: 2024, FiscalPeriod: model.Q1, SourceForm: "10-Q",
		Filed: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sampleFacts() []model.RawFact {
	return []model.RawFact{
		fact("us-gaap:NetIncomeLoss", 13e9, model.UnitUSD),
		fact("us-gaap:StockholdersEquity", 300e9, model.UnitUSD),
		fact("us-gaap:Assets", 4000e9, model.UnitUSD),
		fact("us-gaap:Liabilities", 3700e9, model.UnitUSD),
		fact("us-gaap:CommonStockSharesOutstanding", 2.9e9, model.UnitShares),
	}
}

func kpiValue(obs []model.KPIObservation, name string) (float64, bool) {
	for _, o := range obs {
		if o.Name == name {
			return o.Value, true
		}
	}
	return math.NaN(), false
}

func TestFundamentalsPipeline_Compute(t *testing.T) {
	cfg := testConfig(t)
	p := NewFundamentalsPipeline(cfg)

	res, err := p.Compute(sampleFacts(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Wide, 1)
	roe, ok := kpiValue(res.KPIs, "roe")
	require.True(t, ok)
	assert.InDelta(t, 0.1733, roe, 1e-4)

	_, ok = kpiValue(res.KPIs, "pb")
	assert.False(t, ok, "price ratios need prices")

	assert.Equal(t, []string{"JPM"}, res.Entities())
	assert.Contains(t, res.Quality.ChecksRun, "balance_sheet_identity")
	assert.False(t, res.Quality.HasErrors())
}

func TestFundamentalsPipeline_ComputeWithPrices(t *testing.T) {
	p := NewFundamentalsPipeline(testConfig(t))
	prices := []model.PriceBar{{Ticker: "JPM", Date: time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(200)}}

	res, err := p.Compute(sampleFacts(), prices)
	require.NoError(t, err)

	pb, ok := kpiValue(res.KPIs, "pb")
	require.True(t, ok)
	assert.InDelta(t, 200/(300e9/2.9e9), pb, 1e-9)
}

func TestFundamentalsPipeline_NoFactsStillWritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	p := NewFundamentalsPipeline(cfg)

	res, err := p.Run(context.Background(), []model.RawFact{fact("us-gaap:Unmapped", 1, model.UnitUSD)}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Normalized)
	assert.Empty(t, res.KPIs)
	assert.False(t, res.Quality.HasErrors())

	for _, name := range []string{store.QualityFile, store.FundamentalsFile, store.KPIFile} {
		path := filepath.Join(cfg.ProcessedDir(), name)
		require.Equal(t, path, res.Files[name])
		data, err := os.ReadFile(path)
		require.NoError(t, err, name)
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		assert.Len(t, lines, 1, "%s should hold only the header", name)
	}
}

type recordingSink struct {
	ensured bool
	runs    []store.Run
	err     error
}

func (s *recordingSink) EnsureSchema(ctx context.Context) error {
	s.ensured = true
	return nil
}

func (s *recordingSink) SaveRun(ctx context.Context, run store.Run) error {
	s.runs = append(s.runs, run)
	return s.err
}

func TestFundamentalsPipeline_RunWritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Formats = []string{"csv", "xlsx"}
	sink := &recordingSink{}
	p := NewFundamentalsPipeline(cfg, WithSink(sink))
	p.newID = func() string { return "run-1" }

	res, err := p.Run(context.Background(), sampleFacts(), nil)
	require.NoError(t, err)

	for _, name := range []string{
		store.FundamentalsFile, store.WideFile, store.KPIFile,
		store.QualityFile, store.DictionaryFile, store.WorkbookFile,
	} {
		path, ok := res.Files[name]
		require.True(t, ok, name)
		assert.FileExists(t, path)
		assert.Equal(t, cfg.ProcessedDir(), filepath.Dir(path))
	}

	assert.True(t, sink.ensured)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "run-1", sink.runs[0].ID)
	assert.Equal(t, []string{"JPM"}, sink.runs[0].Entities)
	assert.Len(t, sink.runs[0].Normalized, len(res.Normalized))
}

func TestFundamentalsPipeline_SinkFailureDoesNotFailRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("connection refused")}
	p := NewFundamentalsPipeline(testConfig(t), WithSink(sink))

	_, err := p.Run(context.Background(), sampleFacts(), nil)
	assert.NoError(t, err)
}

func TestFundamentalsPipeline_QualityReportAlwaysWritten(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Formats = []string{"xlsx"}
	p := NewFundamentalsPipeline(cfg)

	res, err := p.Run(context.Background(), sampleFacts(), nil)
	require.NoError(t, err)

	assert.NotContains(t, res.Files, store.FundamentalsFile)
	assert.Contains(t, res.Files, store.QualityFile)
	assert.Contains(t, res.Files, store.WorkbookFile)
}

func ollamaServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(openai.ModelsList{})
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}}},
				Usage:   openai.Usage{TotalTokens: 42},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFundamentalsPipeline_Summary(t *testing.T) {
	srv := ollamaServer(t, "JPM posted a 17.33% return on equity.")
	cfg := testConfig(t)

	s, err := llm.NewSummarizer(llm.Config{Provider: "ollama", BaseURL: srv.URL, StrictNumbers: true, Timeout: 5 * time.Second})
	require.NoError(t, err)
	p := NewFundamentalsPipeline(cfg, WithSummarizer(s))

	res, err := p.Run(context.Background(), sampleFacts(), nil)
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Equal(t, "JPM posted a 17.33% return on equity.", res.Summary.SummaryMD)
	path, ok := res.Files[store.SummaryFile]
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "17.33%")
}

func TestLoadRaw_MissingFacts(t *testing.T) {
	_, _, err := LoadRaw(testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data fetch")
}
