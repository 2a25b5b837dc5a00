package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Loader fetches everything needed for one ticker
type Loader[T any] interface {
	Load(ctx context.Context, ticker string) (T, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc[T any] func(ctx context.Context, ticker string) (T, error)

func (f LoaderFunc[T]) Load(ctx context.Context, ticker string) (T, error) {
	return f(ctx, ticker)
}

// TickerResult is the outcome of loading one ticker
type TickerResult[T any] struct {
	Index    int // Position in the input list
	Ticker   string
	Data     T
	Error    error
	Duration time.Duration
}

func (r *TickerResult[T]) GetError() error {
	return r.Error
}

type tickerJob[T any] struct {
	index  int
	ticker string
	loader Loader[T]
}

func (j *tickerJob[T]) Execute(ctx context.Context) *TickerResult[T] {
	start := time.Now()
	data, err := j.loader.Load(ctx, j.ticker)
	res := &TickerResult[T]{Index: j.index, Ticker: j.ticker, Data: data, Duration: time.Since(start)}
	if err != nil {
		res.Error = fmt.Errorf("%s: %w", j.ticker, err)
	}
	return res
}

// BatchProcessor loads many tickers concurrently
type BatchProcessor[T any] struct {
	loader      Loader[T]
	concurrency int
}

// NewBatchProcessor creates a processor running at most concurrency loads at once
func NewBatchProcessor[T any](loader Loader[T], concurrency int) *BatchProcessor[T] {
	return &BatchProcessor[T]{loader: loader, concurrency: concurrency}
}

// Process loads every ticker and returns results in input order.
// A failed ticker does not stop the others.
func (b *BatchProcessor[T]) Process(ctx context.Context, tickers []string) []*TickerResult[T] {
	if len(tickers) == 0 {
		return []*TickerResult[T]{}
	}

	pool := NewPool[*TickerResult[T]](ctx, b.concurrency)
	pool.Start()

	submitted := 0
	for i, t := range tickers {
		if !pool.Submit(&tickerJob[T]{index: i, ticker: t, loader: b.loader}) {
			break
		}
		submitted++
	}
	results := pool.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	if failed := len(Errors(results)); failed > 0 || len(results) < submitted {
		log.WithFields(log.Fields{
			"tickers": len(tickers),
			"failed":  failed,
		}).Warn("batch finished with failures")
	}
	return results
}

// ProcessFile reads tickers from path and processes them
func (b *BatchProcessor[T]) ProcessFile(ctx context.Context, path string) ([]*TickerResult[T], error) {
	tickers, err := ReadTickersFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickers: %w", err)
	}
	return b.Process(ctx, tickers), nil
}

// ReadTickersFromFile reads one ticker per line. Blank lines and # comments
// are skipped; tickers are upper-cased and deduplicated in order.
func ReadTickersFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tickers []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		t := strings.ToUpper(strings.TrimSpace(line))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return tickers, nil
}
