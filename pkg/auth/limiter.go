package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// LimiterPool hands out one token-bucket limiter per caller key. Keys
// are user ids for authenticated requests and remote IPs otherwise.
type LimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiterPool builds a pool with the given refill rate and burst.
func NewLimiterPool(rps float64, burst int) *LimiterPool {
	return &LimiterPool{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether the caller identified by key may proceed.
func (p *LimiterPool) Allow(key string) bool {
	p.mu.Lock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[key] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
