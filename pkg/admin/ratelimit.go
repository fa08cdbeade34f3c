package admin

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter throttles sign-in attempts per client address.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
	ttl     time.Duration
}

func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(perMinute / 60),
		burst:   burst,
		ttl:     3 * time.Minute,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	// drop stale entries while we hold the lock
	for k, c := range rl.clients {
		if now.Sub(c.seen) > rl.ttl {
			delete(rl.clients, k)
		}
	}
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{lim: rate.NewLimiter(rl.r, rl.burst)}
		rl.clients[ip] = c
	}
	c.seen = now
	return c.lim.Allow()
}
