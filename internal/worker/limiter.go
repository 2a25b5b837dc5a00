package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate-limits outbound requests per host. A rate set for a domain
// with SetDomainRate is shared by that domain and all of its subdomains, so
// data.sec.gov and www.sec.gov draw from one budget.
type Limiter struct {
	mu           sync.RWMutex
	hosts        map[string]*rate.Limiter
	domains      map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter whose unconfigured hosts get requestsPerSecond with burst
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		domains:      make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// SetDomainRate assigns a shared budget to domain and its subdomains
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.domains[strings.ToLower(domain)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until a request to rawURL may proceed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	lim, err := l.forURL(rawURL)
	if err != nil {
		return err
	}
	return lim.Wait(ctx)
}

// Allow reports whether a request to rawURL may proceed now, consuming a token if so
func (l *Limiter) Allow(rawURL string) bool {
	lim, err := l.forURL(rawURL)
	if err != nil {
		return false
	}
	return lim.Allow()
}

// WaitWithDelay waits for clearance and then pauses for delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (l *Limiter) forURL(rawURL string) (*rate.Limiter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("parse url %q: no host", rawURL)
	}

	l.mu.RLock()
	if lim := l.domainLimiter(host); lim != nil {
		l.mu.RUnlock()
		return lim, nil
	}
	lim, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return lim, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.hosts[host]; ok {
		return lim, nil
	}
	lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.hosts[host] = lim
	return lim, nil
}

// domainLimiter finds the configured budget for host or its nearest parent domain.
// Caller holds mu.
func (l *Limiter) domainLimiter(host string) *rate.Limiter {
	for h := host; h != ""; {
		if lim, ok := l.domains[h]; ok {
			return lim
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return nil
}
