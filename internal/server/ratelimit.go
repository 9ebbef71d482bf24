// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	defaultMaxVisitors = 10000
	visitorIdle        = 10 * time.Minute
	visitorSweep       = 5 * time.Minute
)

// RateLimitConfig configures per-IP token buckets. A zero rate disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// MaxVisitors caps tracked IPs; the least recently seen are evicted.
	MaxVisitors int
}

// Validate rejects inconsistent settings and fills in MaxVisitors.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return srserr.Errorf(srserr.CodeServerConfigInvalid, "rate limit must not be negative, got %g", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return srserr.Errorf(srserr.CodeServerConfigInvalid, "rate limit burst must be positive, got %d", c.Burst)
	}
	if c.MaxVisitors < 0 {
		return srserr.Errorf(srserr.CodeServerConfigInvalid, "rate limit max visitors must not be negative, got %d", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = defaultMaxVisitors
	}
	return nil
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

type limiter struct {
	mu       sync.Mutex
	cfg      RateLimitConfig
	visitors map[string]*bucket
	now      func() time.Time
	logger   *slog.Logger
}

func newLimiter(cfg RateLimitConfig, logger *slog.Logger) *limiter {
	return &limiter{cfg: cfg, visitors: make(map[string]*bucket), now: time.Now, logger: logger}
}

func (l *limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.visitors[ip]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.Burst), lastRefill: now}
		l.visitors[ip] = b
	}
	b.lastSeen = now
	b.tokens = min(b.tokens+now.Sub(b.lastRefill).Seconds()*l.cfg.RequestsPerSecond, float64(l.cfg.Burst))
	b.lastRefill = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle visitors, then evicts the least recently seen beyond the
// cap.
func (l *limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	type seen struct {
		ip string
		at time.Time
	}
	var live []seen
	for ip, b := range l.visitors {
		if now.Sub(b.lastSeen) > visitorIdle {
			delete(l.visitors, ip)
			continue
		}
		live = append(live, seen{ip, b.lastSeen})
	}
	if over := len(live) - l.cfg.MaxVisitors; over > 0 {
		slices.SortFunc(live, func(a, b seen) int { return a.at.Compare(b.at) })
		for _, v := range live[:over] {
			delete(l.visitors, v.ip)
		}
		l.logger.Warn("rate limiter visitor cap enforced", "evicted", over, "max_visitors", l.cfg.MaxVisitors)
	}
}

func rateLimitMiddleware(cfg RateLimitConfig, logger *slog.Logger, done <-chan struct{}) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := newLimiter(cfg, logger)
	go func() {
		ticker := time.NewTicker(visitorSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !l.allow(ip) {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
