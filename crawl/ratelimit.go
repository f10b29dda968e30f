package crawl

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fwojciec/autotrack"
	"golang.org/x/time/rate"
)

// Compile-time interface verification.
var (
	_ autotrack.DomainLimiter = (*DomainLimiter)(nil)
	_ autotrack.DomainLimiter = (*Pacer)(nil)
)

// DomainLimiter provides per-domain rate limiting using token buckets.
// Each domain gets its own limiter so pacing one host never delays another.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewDomainLimiter creates a new DomainLimiter with the specified requests per second limit.
// Each domain gets its own limiter with a burst of 1 (no bursting allowed).
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(d.rps), 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

// Pacer spaces listing page requests like a human visitor: it waits on the
// domain limiter and then sleeps a random delay in [MinDelay, MaxDelay).
type Pacer struct {
	Limiter  autotrack.DomainLimiter
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewPacer creates a Pacer allowing at most one request per minDelay per
// domain plus jitter up to maxDelay.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	p := &Pacer{MinDelay: minDelay, MaxDelay: maxDelay}
	if minDelay > 0 {
		p.Limiter = NewDomainLimiter(float64(time.Second) / float64(minDelay))
	}
	return p
}

// Wait blocks until a request to domain may proceed.
func (p *Pacer) Wait(ctx context.Context, domain string) error {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx, domain); err != nil {
			return err
		}
	}

	delay := p.delay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// delay returns a random duration in [MinDelay, MaxDelay), or MinDelay when
// the range is empty.
func (p *Pacer) delay() time.Duration {
	if p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + rand.N(p.MaxDelay-p.MinDelay)
}
