package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/cache"
	"github.com/ppiankov/banklab/internal/model"
)

// DefaultStooqURL serves free daily OHLCV CSVs
const DefaultStooqURL = "https://stooq.com"

// PriceClient downloads daily prices from Stooq
type PriceClient struct {
	fetcher *Fetcher
	raw     *cache.RawStore
	baseURL string
	refresh bool
}

// NewPriceClient creates a price client. raw may be nil.
func NewPriceClient(fetcher *Fetcher, raw *cache.RawStore, baseURL string, refresh bool) *PriceClient {
	if baseURL == "" {
		baseURL = DefaultStooqURL
	}
	return &PriceClient{fetcher: fetcher, raw: raw, baseURL: strings.TrimSuffix(baseURL, "/"), refresh: refresh}
}

// Daily returns the ticker's daily bars in date order
func (c *PriceClient) Daily(ctx context.Context, ticker string) ([]model.PriceBar, error) {
	lower := strings.ToLower(ticker)
	key := fmt.Sprintf("prices_%s.csv", lower)

	if c.raw != nil && !c.refresh {
		if data, ok := c.raw.Load(key); ok {
			log.WithField("ticker", ticker).Debug("using stored prices")
			return ParseStooqCSV(ticker, data)
		}
	}

	url := fmt.Sprintf("%s/q/d/l/?s=%s.us&i=d", c.baseURL, lower)
	resp, err := c.fetcher.FetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	if c.raw != nil {
		if _, err := c.raw.Store(key, resp.Body, url, "Daily prices for "+strings.ToUpper(ticker)); err != nil {
			log.WithError(err).WithField("ticker", ticker).Warn("failed to store prices")
		}
	}
	return ParseStooqCSV(ticker, resp.Body)
}

// ParseStooqCSV parses Date,Open,High,Low,Close,Volume rows. Column names are
// matched case-insensitively; Volume is optional. A "No data" body is an empty series.
func ParseStooqCSV(ticker string, data []byte) ([]model.PriceBar, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.EqualFold(trimmed, []byte("No data")) {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(trimmed))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read price header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("price column %q missing: %w", required, ErrSchema)
		}
	}

	ticker = strings.ToUpper(ticker)
	var bars []model.PriceBar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read prices line %d: %w", line, err)
		}
		bar, err := parseBar(ticker, rec, cols)
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseBar(ticker string, rec []string, cols map[string]int) (model.PriceBar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, err := time.Parse(time.DateOnly, field("date"))
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("date %q: %w", field("date"), ErrSchema)
	}
	bar := model.PriceBar{Ticker: ticker, Date: date}
	for name, dst := range map[string]*decimal.Decimal{
		"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "close": &bar.Close,
	} {
		v, err := decimal.NewFromString(field(name))
		if err != nil {
			return model.PriceBar{}, fmt.Errorf("%s %q: %w", name, field(name), ErrSchema)
		}
		*dst = v
	}
	if vol := field("volume"); vol != "" {
		f, err := strconv.ParseFloat(vol, 64)
		if err != nil {
			return model.PriceBar{}, fmt.Errorf("volume %q: %w", vol, ErrSchema)
		}
		bar.Volume = int64(f)
	}
	return bar, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return cols
}

// CloseOnOrBefore returns the last close at or before date. bars must be in date order.
func CloseOnOrBefore(bars []model.PriceBar, date time.Time) (decimal.Decimal, bool) {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(date) })
	if i == 0 {
		return decimal.Decimal{}, false
	}
	return bars[i-1].Close, true
}

// PriceIndex answers close-price lookups per ticker
type PriceIndex map[string][]model.PriceBar

// NewPriceIndex groups bars by ticker in date order
func NewPriceIndex(bars []model.PriceBar) PriceIndex {
	idx := make(PriceIndex)
	for _, b := range bars {
		t := strings.ToUpper(b.Ticker)
		idx[t] = append(idx[t], b)
	}
	for t := range idx {
		series := idx[t]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	}
	return idx
}

// Close returns the close on or before asOf as a float
func (p PriceIndex) Close(entityID string, asOf time.Time) (float64, bool) {
	c, ok := CloseOnOrBefore(p[strings.ToUpper(entityID)], asOf)
	if !ok {
		return 0, false
	}
	return c.InexactFloat64(), true
}
