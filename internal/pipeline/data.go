// Package pipeline wires ingestion, normalization, KPIs, quality checks and
// persistence into the two runnable stages: data fetch and fundamentals build.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/banklab/internal/cache"
	"github.com/ppiankov/banklab/internal/ingest"
	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/store"
	"github.com/ppiankov/banklab/internal/util"
	"github.com/ppiankov/banklab/internal/worker"
)

// Raw table names under the raw directory
const (
	RawFactsFile = "raw_facts.csv"
	PricesFile   = "prices_daily.csv"
)

// ErrNoData is returned when every ticker failed to load
var ErrNoData = errors.New("no data loaded for any ticker")

// DataPipeline downloads company facts and prices for a ticker list
type DataPipeline struct {
	cfg      *model.Config
	manifest *cache.Manifest
	sec      *ingest.SECClient
	prices   *ingest.PriceClient

	secTickersURL string
	secDataURL    string
	stooqURL      string
	refresh       bool
}

// DataOption configures a DataPipeline
type DataOption func(*DataPipeline)

// WithSECEndpoints overrides the SEC hosts
func WithSECEndpoints(tickersURL, dataURL string) DataOption {
	return func(p *DataPipeline) {
		p.secTickersURL = tickersURL
		p.secDataURL = dataURL
	}
}

// WithStooqURL overrides the price host
func WithStooqURL(url string) DataOption {
	return func(p *DataPipeline) { p.stooqURL = url }
}

// WithRefresh downloads files again even if the raw store has them
func WithRefresh(refresh bool) DataOption {
	return func(p *DataPipeline) { p.refresh = refresh }
}

// NewDataPipeline builds the HTTP stack (limiter, robots, cache) and the
// SEC and price clients from cfg
func NewDataPipeline(cfg *model.Config, opts ...DataOption) (*DataPipeline, error) {
	p := &DataPipeline{
		cfg:           cfg,
		secTickersURL: ingest.DefaultTickersURL,
		secDataURL:    ingest.DefaultDataURL,
		stooqURL:      ingest.DefaultStooqURL,
	}
	for _, opt := range opts {
		opt(p)
	}

	manifest, err := cache.LoadManifest(cfg.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	p.manifest = manifest

	limiter := worker.NewLimiter(cfg.SEC.RequestsPerSecond, cfg.SEC.Burst)
	limiter.SetDomainRate(hostOf(p.secDataURL), cfg.SEC.RequestsPerSecond, cfg.SEC.Burst)
	limiter.SetDomainRate(hostOf(p.secTickersURL), cfg.SEC.RequestsPerSecond, cfg.SEC.Burst)
	limiter.SetDomainRate(hostOf(p.stooqURL), cfg.Prices.RequestsPerSecond, 1)

	fetchOpts := []ingest.FetcherOption{ingest.WithLimiter(limiter)}
	if cfg.HTTP.RespectRobots {
		robots := util.NewRobotsChecker(ingest.NewHTTPClient(cfg.HTTP), cfg.SEC.UserAgent, cfg.HTTP.Timeout)
		fetchOpts = append(fetchOpts, ingest.WithRobots(robots))
	}
	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.CacheDir(), cfg.Cache.DiskTTL)
		fetchOpts = append(fetchOpts, ingest.WithCache(c, cfg.Cache.DiskTTL))
	}
	fetcher := ingest.NewFetcher(cfg.HTTP, cfg.SEC.UserAgent, fetchOpts...)

	p.sec = ingest.NewSECClient(fetcher,
		ingest.WithEndpoints(p.secTickersURL, p.secDataURL),
		ingest.WithRawStore(cache.NewRawStore(filepath.Join(cfg.RawDir(), "sec"), manifest)),
		ingest.WithRefresh(p.refresh),
	)
	if cfg.Prices.Enabled {
		raw := cache.NewRawStore(filepath.Join(cfg.RawDir(), "market"), manifest)
		p.prices = ingest.NewPriceClient(fetcher, raw, p.stooqURL, p.refresh)
	}
	return p, nil
}

// DataResult is the outcome of a fetch
type DataResult struct {
	Facts     []model.RawFact
	Prices    []model.PriceBar
	Companies []model.Company
	Failed    map[string]error // Per-ticker failures; the run continues without them
	Files     map[string]string
	Duration  time.Duration
}

type filerData struct {
	company model.Company
	facts   []model.RawFact
}

// Run fetches every ticker and writes the raw-fact and price tables. A
// ticker that fails is reported in Failed; Run fails only if none loaded.
func (p *DataPipeline) Run(ctx context.Context, tickers []string) (*DataResult, error) {
	start := time.Now()
	res := &DataResult{Failed: make(map[string]error), Files: make(map[string]string)}

	secBatch := worker.NewBatchProcessor[filerData](worker.LoaderFunc[filerData](p.loadFiler), p.cfg.Concurrency.Workers)
	for _, r := range secBatch.Process(ctx, tickers) {
		if r.Error != nil {
			res.Failed[r.Ticker] = r.Error
			continue
		}
		res.Companies = append(res.Companies, r.Data.company)
		res.Facts = append(res.Facts, r.Data.facts...)
		log.WithFields(log.Fields{
			"ticker":   r.Ticker,
			"facts":    len(r.Data.facts),
			"duration": r.Duration.Round(time.Millisecond),
		}).Info("Loaded company facts")
	}
	if len(res.Companies) == 0 && len(tickers) > 0 {
		return res, fmt.Errorf("%w: %v", ErrNoData, errors.Join(failures(res.Failed)...))
	}

	if p.prices != nil {
		loaded := make([]string, 0, len(res.Companies))
		for _, c := range res.Companies {
			loaded = append(loaded, c.Ticker)
		}
		priceBatch := worker.NewBatchProcessor[[]model.PriceBar](worker.LoaderFunc[[]model.PriceBar](p.prices.Daily), p.cfg.Concurrency.Workers)
		for _, r := range priceBatch.Process(ctx, loaded) {
			if r.Error != nil {
				log.WithError(r.Error).WithField("ticker", r.Ticker).Warn("Prices unavailable; price ratios will be empty")
				continue
			}
			res.Prices = append(res.Prices, r.Data...)
		}
	}

	factsPath := filepath.Join(p.cfg.RawDir(), RawFactsFile)
	if err := store.WriteRawFacts(factsPath, res.Facts); err != nil {
		return res, fmt.Errorf("write raw facts: %w", err)
	}
	res.Files[RawFactsFile] = factsPath

	if p.prices != nil {
		pricesPath := filepath.Join(p.cfg.RawDir(), PricesFile)
		if err := store.WritePrices(pricesPath, res.Prices); err != nil {
			return res, fmt.Errorf("write prices: %w", err)
		}
		res.Files[PricesFile] = pricesPath
	}
	res.Files["manifest"] = p.manifest.Path()

	res.Duration = time.Since(start)
	log.WithFields(log.Fields{
		"tickers":  len(res.Companies),
		"failed":   len(res.Failed),
		"facts":    len(res.Facts),
		"prices":   len(res.Prices),
		"duration": res.Duration.Round(time.Millisecond),
	}).Info("Data fetch complete")
	return res, nil
}

func (p *DataPipeline) loadFiler(ctx context.Context, ticker string) (filerData, error) {
	company, err := p.sec.Submissions(ctx, ticker)
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownTicker) {
			return filerData{}, err
		}
		log.WithError(err).WithField("ticker", ticker).Warn("Filer metadata unavailable")
		company = model.Company{Ticker: ticker}
	}
	facts, err := p.sec.CompanyFacts(ctx, ticker)
	if err != nil {
		return filerData{}, err
	}
	return filerData{company: company, facts: facts}, nil
}

func failures(m map[string]error) []error {
	tickers := make([]string, 0, len(m))
	for t := range m {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	errs := make([]error, 0, len(tickers))
	for _, t := range tickers {
		errs = append(errs, m[t])
	}
	return errs
}

// hostOf returns the registrable domain of rawURL so that sibling hosts such
// as www.sec.gov and data.sec.gov share one rate limit
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return host
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
