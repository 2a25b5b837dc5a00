package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/cache"
	"github.com/ppiankov/banklab/internal/model"
	"github.com/ppiankov/banklab/internal/util"
)

// fetchSleepFunc is replaced in tests to skip backoff delays
var fetchSleepFunc = sleepCtx

const (
	baseBackoff   = 500 * time.Millisecond
	maxRetryAfter = 30 * time.Second
)

// RateWaiter blocks until a request to a URL may proceed
type RateWaiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher performs polite GETs: fixed User-Agent, per-host rate limiting,
// optional robots.txt checks, response caching and retries on transient failures.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    RateWaiter
	robots     *util.RobotsChecker
	cache      cache.Cache
	cacheTTL   time.Duration
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithLimiter rate-limits requests
func WithLimiter(l RateWaiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots checks robots.txt before each request
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithCache serves repeated GETs from c for ttl
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewHTTPClient builds a client with the configured timeout and proxies
func NewHTTPClient(cfg model.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}

// NewFetcher creates a fetcher
func NewFetcher(cfg model.HTTPConfig, userAgent string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:     NewHTTPClient(cfg),
		userAgent:  userAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 64 << 20
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 1
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Response is a fetched body with its metadata
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// Fetch performs a single GET without retries
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	key := cache.Key(rawURL)
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			return &Response{URL: rawURL, StatusCode: http.StatusOK, Body: body, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/csv;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			Code:       resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        rawURL,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.maxBytes)
	}

	if f.cache != nil {
		if err := f.cache.Set(key, body, f.cacheTTL); err != nil {
			log.WithError(err).WithField("url", rawURL).Warn("cache write failed")
		}
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FetchWithRetry retries transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt, lastErr)
			log.WithFields(log.Fields{
				"url":     rawURL,
				"attempt": attempt + 1,
				"wait":    wait,
			}).Debug("retrying fetch")
			if err := fetchSleepFunc(ctx, wait); err != nil {
				return nil, err
			}
		}

		resp, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.maxRetries, lastErr)
}

func backoff(attempt int, lastErr error) time.Duration {
	var se *StatusError
	if errors.As(lastErr, &se) && se.RetryAfter > 0 {
		return min(se.RetryAfter, maxRetryAfter)
	}
	return time.Duration(float64(baseBackoff) * math.Pow(2, float64(attempt-1)))
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
