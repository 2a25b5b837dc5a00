package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/cache"
	"github.com/ppiankov/banklab/internal/model"
)

// SEC EDGAR endpoints
const (
	DefaultTickersURL = "https://www.sec.gov/files/company_tickers.json"
	DefaultDataURL    = "https://data.sec.gov"
)

// SECClient loads the ticker map, filer metadata and XBRL company facts
type SECClient struct {
	fetcher    *Fetcher
	raw        *cache.RawStore
	tickersURL string
	dataURL    string
	refresh    bool

	mu      sync.Mutex
	tickers map[string]string
}

// SECOption configures an SECClient
type SECOption func(*SECClient)

// WithEndpoints points the client at alternate hosts
func WithEndpoints(tickersURL, dataURL string) SECOption {
	return func(c *SECClient) {
		c.tickersURL = tickersURL
		c.dataURL = strings.TrimSuffix(dataURL, "/")
	}
}

// WithRawStore keeps every downloaded file under raw and reuses it on later runs
func WithRawStore(raw *cache.RawStore) SECOption {
	return func(c *SECClient) { c.raw = raw }
}

// WithRefresh ignores files already in the raw store
func WithRefresh(refresh bool) SECOption {
	return func(c *SECClient) { c.refresh = refresh }
}

// NewSECClient creates a client using fetcher for all requests
func NewSECClient(fetcher *Fetcher, opts ...SECOption) *SECClient {
	c := &SECClient{
		fetcher:    fetcher,
		tickersURL: DefaultTickersURL,
		dataURL:    DefaultDataURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// load returns the raw file for key, downloading it from url when needed
func (c *SECClient) load(ctx context.Context, key, url, notes string) ([]byte, error) {
	if c.raw != nil && !c.refresh {
		if data, ok := c.raw.Load(key); ok {
			log.WithField("key", key).Debug("using stored SEC file")
			return data, nil
		}
	}

	resp, err := c.fetcher.FetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	if c.raw != nil {
		if _, err := c.raw.Store(key, resp.Body, url, notes); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to store SEC file")
		}
	}
	return resp.Body, nil
}

// TickerMap returns upper-case ticker to zero-padded CIK. It is loaded once per client.
func (c *SECClient) TickerMap(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tickers != nil {
		return c.tickers, nil
	}

	data, err := c.load(ctx, "company_tickers.json", c.tickersURL, "SEC ticker to CIK mapping")
	if err != nil {
		return nil, fmt.Errorf("load ticker map: %w", err)
	}
	m, err := ParseTickerMap(data)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(m)).Debug("loaded ticker map")
	c.tickers = m
	return m, nil
}

// ParseTickerMap decodes company_tickers.json, an object of {cik_str, ticker, title} entries
func ParseTickerMap(data []byte) (map[string]string, error) {
	var raw map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
		Title  string      `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ticker map: %w", err)
	}

	m := make(map[string]string, len(raw))
	for _, e := range raw {
		if e.Ticker == "" {
			continue
		}
		m[strings.ToUpper(e.Ticker)] = PadCIK(e.CIK.String())
	}
	return m, nil
}

// PadCIK left-pads a CIK with zeros to 10 digits
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

// ResolveCIK returns the CIK for ticker
func (c *SECClient) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	m, err := c.TickerMap(ctx)
	if err != nil {
		return "", err
	}
	cik, ok := m[strings.ToUpper(ticker)]
	if !ok {
		return "", fmt.Errorf("%q: %w", ticker, ErrUnknownTicker)
	}
	return cik, nil
}

// Submissions returns filer metadata
func (c *SECClient) Submissions(ctx context.Context, ticker string) (model.Company, error) {
	ticker = strings.ToUpper(ticker)
	cik, err := c.ResolveCIK(ctx, ticker)
	if err != nil {
		return model.Company{}, err
	}

	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)
	key := fmt.Sprintf("submissions_%s_%s.json", ticker, cik)
	data, err := c.load(ctx, key, url, "Filing submissions for "+ticker)
	if err != nil {
		return model.Company{}, fmt.Errorf("load submissions: %w", err)
	}

	var sub struct {
		Name           string `json:"name"`
		SIC            string `json:"sic"`
		SICDescription string `json:"sicDescription"`
	}
	if err := json.Unmarshal(data, &sub); err != nil {
		return model.Company{}, fmt.Errorf("parse submissions: %w", err)
	}

	sic := sub.SIC
	if sub.SICDescription != "" {
		sic = strings.TrimSpace(sic + " " + sub.SICDescription)
	}
	return model.Company{Ticker: ticker, CIK: cik, Name: sub.Name, SIC: sic}, nil
}

// CompanyFacts downloads and flattens every XBRL fact the filer reported
func (c *SECClient) CompanyFacts(ctx context.Context, ticker string) ([]model.RawFact, error) {
	ticker = strings.ToUpper(ticker)
	cik, err := c.ResolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataURL, cik)
	key := fmt.Sprintf("companyfacts_%s_%s.json", ticker, cik)
	data, err := c.load(ctx, key, url, "XBRL company facts for "+ticker)
	if err != nil {
		return nil, fmt.Errorf("load company facts: %w", err)
	}

	facts, err := ParseCompanyFacts(ticker, data)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"ticker": ticker, "facts": len(facts)}).Info("extracted company facts")
	return facts, nil
}

type companyFacts struct {
	Facts map[string]map[string]struct {
		Units map[string][]xbrlObservation `json:"units"`
	} `json:"facts"`
}

type xbrlObservation struct {
	End   string   `json:"end"`
	Val   *float64 `json:"val"`
	FY    *int     `json:"fy"`
	FP    string   `json:"fp"`
	Form  string   `json:"form"`
	Filed string   `json:"filed"`
}

// ParseCompanyFacts flattens a companyfacts document into raw facts, one per
// taxonomy, tag, unit and observation, ordered by period end. Observations
// with neither an end nor a filed date are dropped.
func ParseCompanyFacts(ticker string, data []byte) ([]model.RawFact, error) {
	var doc companyFacts
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse company facts: %w", err)
	}

	var facts []model.RawFact
	for _, taxonomy := range sortedKeys(doc.Facts) {
		tags := doc.Facts[taxonomy]
		for _, tag := range sortedKeys(tags) {
			units := tags[tag].Units
			for _, unit := range sortedKeys(units) {
				for _, obs := range units[unit] {
					f, ok := obs.toFact(ticker, taxonomy+":"+tag, unit)
					if ok {
						facts = append(facts, f)
					}
				}
			}
		}
	}

	sort.SliceStable(facts, func(i, j int) bool { return facts[i].PeriodEnd.Before(facts[j].PeriodEnd) })
	return facts, nil
}

func (o xbrlObservation) toFact(ticker, tag, unit string) (model.RawFact, bool) {
	filed, _ := parseDate(o.Filed)
	end, err := parseDate(o.End)
	if err != nil {
		if filed.IsZero() {
			return model.RawFact{}, false
		}
		end = filed
	}

	f := model.RawFact{
		EntityID:     strings.ToUpper(ticker),
		ConceptTag:   tag,
		PeriodEnd:    end,
		Value:        math.NaN(),
		Unit:         model.Unit(unit),
		FiscalPeriod: model.FiscalPeriod(o.FP),
		SourceForm:   o.Form,
		Filed:        filed,
	}
	if o.Val != nil {
		f.Value = *o.Val
	}
	if o.FY != nil {
		f.FiscalYear = *o.FY
	}
	return f, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.Parse(time.DateOnly, s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
