package middleware

import (
	"net/http"
	"sync"
	"time"
)

// mutation endpoints share one limiter; entries idle longer than this are
// dropped on the next sweep.
const limiterIdleTTL = 10 * time.Minute

type tokenBucket struct {
	remaining float64
	refilled  time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     float64
	clients   map[string]*tokenBucket
	lastSweep time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		perSecond: perSecond,
		burst:     float64(burst),
		clients:   make(map[string]*tokenBucket),
		lastSweep: time.Now(),
	}
}

// allow refills the caller's bucket for the elapsed time and takes one token.
// Stale client entries are swept opportunistically so the map cannot grow
// without bound.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterIdleTTL/2 {
		l.sweepLocked(now)
	}

	b, ok := l.clients[ip]
	if !ok {
		b = &tokenBucket{remaining: l.burst, refilled: now}
		l.clients[ip] = b
	}
	b.remaining += now.Sub(b.refilled).Seconds() * l.perSecond
	if b.remaining > l.burst {
		b.remaining = l.burst
	}
	b.refilled = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

func (l *ipLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL)
	for ip, b := range l.clients {
		if b.refilled.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects requests above rate requests/sec per client IP with
// 429 Too Many Requests. Burst tolerance covers an admin toggling several
// slots in quick succession.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newIPLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Real-Ip") // set by chi's RealIP when behind a proxy
			if ip == "" {
				ip = r.RemoteAddr
			}
			if !limiter.allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
