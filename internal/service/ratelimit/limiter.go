package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu   sync.Mutex
	m    map[string]*entry
	idle time.Duration
}

func New() *Limiter { return &Limiter{m: make(map[string]*entry), idle: 10 * time.Minute} }

// Allow returns true if one token can be consumed for key.
// The bucket of a key is created on first use with the given capacity and refill rate.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		burst := int(capacity)
		if burst < 1 {
			burst = 1
		}
		e = &entry{lim: rate.NewLimiter(rate.Limit(refillPerSec), burst)}
		l.m[key] = e
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// Prune drops buckets unused for longer than the idle period. Returns how many were removed.
func (l *Limiter) Prune() int {
	cutoff := time.Now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.m {
		if e.seen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
