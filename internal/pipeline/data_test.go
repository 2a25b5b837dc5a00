package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/banklab/internal/cache"
)

const (
	testTickers = `{"0": {"cik_str": 19617, "ticker": "JPM", "title": "JPMORGAN CHASE & CO"}}`
	testFacts   = `{"facts": {"us-gaap": {
		"NetIncomeLoss": {"units": {"USD": [{"end": "2024-03-31", "val": 13000000000, "fy": 2024, "fp": "Q1", "form": "10-Q", "filed": "2024-05-01"}]}},
		"StockholdersEquity": {"units": {"USD": [{"end": "2024-03-31", "val": 300000000000, "fy": 2024, "fp": "Q1", "form": "10-Q", "filed": "2024-05-01"}]}},
		"Assets": {"units": {"USD": [{"end": "2024-03-31", "val": 4000000000000, "fy": 2024, "fp": "Q1", "form": "10-Q", "filed": "2024-05-01"}]}}
	}}}`
	testPrices = "Date,Open,High,Low,Close,Volume\n2024-03-28,198,201,197,200.3,9000000\n"
)

func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(testTickers))
	})
	mux.HandleFunc("/submissions/CIK0000019617.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name": "JPMORGAN CHASE & CO", "sic": "6021", "sicDescription": "National Commercial Banks"}`))
	})
	mux.HandleFunc("/api/xbrl/companyfacts/CIK0000019617.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(testFacts))
	})
	mux.HandleFunc("/q/d/l/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("s") != "jpm.us" {
			_, _ = w.Write([]byte("No data"))
			return
		}
		_, _ = w.Write([]byte(testPrices))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDataPipeline_Run(t *testing.T) {
	srv, _ := newUpstream(t)
	cfg := testConfig(t)
	p, err := NewDataPipeline(cfg,
		WithSECEndpoints(srv.URL+"/files/company_tickers.json", srv.URL),
		WithStooqURL(srv.URL),
	)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), []string{"JPM", "ZZZZ"})
	require.NoError(t, err)

	require.Len(t, res.Companies, 1)
	assert.Equal(t, "JPMORGAN CHASE & CO", res.Companies[0].Name)
	assert.Len(t, res.Facts, 3)
	assert.Len(t, res.Prices, 1)
	assert.Contains(t, res.Failed, "ZZZZ")

	assert.FileExists(t, res.Files[RawFactsFile])
	assert.FileExists(t, res.Files[PricesFile])

	manifest, err := cache.LoadManifest(cfg.ManifestPath())
	require.NoError(t, err)
	assert.True(t, manifest.Has("company_tickers.json"))
	assert.True(t, manifest.Has("prices_jpm.csv"))

	facts, prices, err := LoadRaw(cfg)
	require.NoError(t, err)
	assert.Len(t, facts, 3)
	assert.Len(t, prices, 1)

	fres, err := NewFundamentalsPipeline(cfg).Compute(facts, prices)
	require.NoError(t, err)
	roe, ok := kpiValue(fres.KPIs, "roe")
	require.True(t, ok)
	assert.InDelta(t, 0.1733, roe, 1e-4)
}

func TestDataPipeline_ReusesRawStore(t *testing.T) {
	srv, hits := newUpstream(t)
	cfg := testConfig(t)
	cfg.Prices.Enabled = false
	opts := []DataOption{WithSECEndpoints(srv.URL+"/files/company_tickers.json", srv.URL)}

	p, err := NewDataPipeline(cfg, opts...)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []string{"JPM"})
	require.NoError(t, err)
	first := hits.Load()
	require.Equal(t, int32(3), first)

	p, err = NewDataPipeline(cfg, opts...)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []string{"JPM"})
	require.NoError(t, err)
	assert.Equal(t, first, hits.Load(), "second run must read the raw store")

	p, err = NewDataPipeline(cfg, append(opts, WithRefresh(true))...)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), []string{"JPM"})
	require.NoError(t, err)
	assert.Equal(t, 2*first, hits.Load())
	assert.NotContains(t, res.Files, PricesFile)
}

func TestDataPipeline_AllTickersFail(t *testing.T) {
	srv, _ := newUpstream(t)
	p, err := NewDataPipeline(testConfig(t), WithSECEndpoints(srv.URL+"/files/company_tickers.json", srv.URL))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []string{"ZZZZ"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "sec.gov", hostOf("https://data.sec.gov"))
	assert.Equal(t, "sec.gov", hostOf("https://www.sec.gov/files/company_tickers.json"))
	assert.Equal(t, "stooq.com", hostOf("https://stooq.com"))
	assert.Equal(t, "127.0.0.1", hostOf("http://127.0.0.1:8080"))
}
