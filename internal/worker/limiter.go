package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter paces outbound requests per upstream host. Hosts that stay idle
// longer than the idle TTL are evicted so a long-running server does not
// accumulate limiters.
type Limiter struct {
	limiters     *gocache.Cache
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int, idleTTL time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = float64(rate.Inf)
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	return &Limiter{
		limiters:     gocache.New(idleTTL, idleTTL/2),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	return l.getLimiter(host).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	host, err := extractHost(rawURL)
	if err != nil {
		return false
	}
	return l.getLimiter(host).Allow()
}

// SetHostRate overrides the rate for one host. Overrides never expire.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters.Set(host, rate.NewLimiter(rate.Limit(requestsPerSecond), burst), gocache.NoExpiration)
}

// Hosts returns the number of hosts currently tracked
func (l *Limiter) Hosts() int {
	return l.limiters.ItemCount()
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, exp, ok := l.limiters.GetWithExpiration(host); ok {
		limiter := v.(*rate.Limiter)
		// Touch to extend the idle window; pinned overrides stay pinned
		if !exp.IsZero() {
			l.limiters.SetDefault(host, limiter)
		}
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters.SetDefault(host, limiter)
	return limiter
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse url %q", rawURL)
	}
	if parsed.Host == "" {
		return "", eris.Errorf("url %q has no host", rawURL)
	}
	return parsed.Host, nil
}
