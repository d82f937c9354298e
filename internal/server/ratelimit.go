package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type rateRule struct {
	every time.Duration
	burst int
}

// Per client IP, per action.
var rateRules = map[string]rateRule{
	"create": {every: 2 * time.Second, burst: 5},
	"join":   {every: 500 * time.Millisecond, burst: 10},
	"login":  {every: time.Second, burst: 5},
	"ws":     {every: 500 * time.Millisecond, burst: 10},
}

const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{entries: make(map[string]*limiterEntry)}
}

func (l *rateLimiter) allow(action, ip string, now time.Time) bool {
	rule, ok := rateRules[action]
	if !ok {
		return true
	}
	key := action + "|" + ip
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entries[key]
	if entry == nil {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(rule.every), rule.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops limiters that have been idle long enough to be full again.
func (l *rateLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > limiterIdle {
			delete(l.entries, key)
		}
	}
}

func newConnLimiter(perSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
