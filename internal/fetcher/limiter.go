package fetcher

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// DomainLimiter spaces requests to the same host with one token bucket per
// host. A nil *DomainLimiter never blocks.
type DomainLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter allowing perSecond requests per host
// with the given burst. It returns nil when perSecond is not positive.
func NewDomainLimiter(perSecond float64, burst int) *DomainLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &DomainLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is permitted or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d == nil || host == "" {
		return nil
	}
	return d.limiterFor(strings.ToLower(host)).Wait(ctx)
}

// Hosts returns the number of hosts with a bucket.
func (d *DomainLimiter) Hosts() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.limiters)
}

func (d *DomainLimiter) limiterFor(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[host]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[host] = l
	}
	return l
}
