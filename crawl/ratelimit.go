package crawl

import (
	"context"
	"net/url"
	"sync"

	"github.com/fwojciec/webintel"
	"golang.org/x/time/rate"
)

var _ webintel.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter paces requests per host with token buckets, so a crawl can
// fetch concurrently without hammering any single site.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// to each host. A non-positive rps disables limiting.
// Burst equals the per-host concurrency the caller expects, minimum 1.
func NewDomainLimiter(rps float64, burst ...int) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	b := 1
	if len(burst) > 0 && burst[0] > 1 {
		b = burst[0]
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    b,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(d.limit, d.burst)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

// WaitURL waits on the limiter for the URL's host.
func WaitURL(ctx context.Context, limiter webintel.DomainLimiter, rawURL string) error {
	if limiter == nil {
		return ctx.Err()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return webintel.Errorf(webintel.EINVALID, "invalid URL %q", rawURL)
	}
	return limiter.Wait(ctx, u.Host)
}
