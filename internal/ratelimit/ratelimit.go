// Package ratelimit implements the IP-keyed limiter that guards the
// platform's public REST endpoints. Each IP gets a token bucket
// (golang.org/x/time/rate); it is not a sliding window, so more than
// RequestsPerWindow requests from one IP can be admitted within a single
// Window span once the bucket refills.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures the limiter. Each IP's bucket holds RequestsPerWindow
// tokens and refills at RequestsPerWindow per Window (default 60 per
// minute).
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
	// IdleEvictAfter removes a per-IP bucket that has been idle this long,
	// bounding memory for a limiter that otherwise never forgets an IP.
	IdleEvictAfter time.Duration
}

// DefaultConfig returns the platform default: 60 requests per minute per IP.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		IdleEvictAfter:    10 * time.Minute,
	}
}

type bucket struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// Limiter is an IP-keyed token-bucket rate limiter. Its idle-bucket GC
// runs lazily inside Allow, not on a background timer.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*bucket
}

// New creates a Limiter from cfg, filling in defaults for zero values.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.IdleEvictAfter <= 0 {
		cfg.IdleEvictAfter = 10 * time.Minute
	}
	return &Limiter{cfg: cfg, buckets: make(map[string]*bucket)}
}

// Allow reports whether a request from ip is allowed by its bucket,
// consuming one token if so. It lazily evicts buckets that
// have been idle past IdleEvictAfter.
func (l *Limiter) Allow(ip string) bool {
	return l.AllowAt(ip, time.Now())
}

// AllowAt is Allow with an explicit clock, for deterministic tests.
func (l *Limiter) AllowAt(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gc(now)

	b, ok := l.buckets[ip]
	if !ok {
		ratePerSec := rate.Limit(float64(l.cfg.RequestsPerWindow) / l.cfg.Window.Seconds())
		b = &bucket{limiter: rate.NewLimiter(ratePerSec, l.cfg.RequestsPerWindow)}
		l.buckets[ip] = b
	}
	b.lastSeenAt = now
	return b.limiter.AllowN(now, 1)
}

// gc drops buckets idle past IdleEvictAfter. Must be called with mu held.
func (l *Limiter) gc(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeenAt) > l.cfg.IdleEvictAfter {
			delete(l.buckets, ip)
		}
	}
}

// TrackedIPs returns the number of IPs currently tracked, for tests/metrics.
func (l *Limiter) TrackedIPs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
