package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero or negative disables limiting.
	Max    int
	Window time.Duration
	// TrustProxy makes the default key honour X-Forwarded-For and X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool
	// KeyFunc overrides how clients are told apart.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests, e.g. health probes.
	Skip func(*http.Request) bool
}

// counter approximates a sliding window from the current fixed window and
// the previous one, weighted by how much of it still overlaps.
type counter struct {
	prev, curr float64
	currStart  time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	counters map[string]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		trust := cfg.TrustProxy
		cfg.KeyFunc = func(r *http.Request) string { return ClientIP(r, trust) }
	}
	return &limiter{cfg: cfg, counters: make(map[string]*counter)}
}

// take consumes one request for key if allowed and reports the remaining
// budget and when the current window ends.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.cfg.Window
	c := l.counters[key]
	if c == nil {
		c = &counter{currStart: now.Truncate(w)}
		l.counters[key] = c
	}
	if elapsed := now.Sub(c.currStart); elapsed >= w {
		c.prev = c.curr
		if elapsed >= 2*w {
			c.prev = 0
		}
		c.curr = 0
		c.currStart = now.Truncate(w)
	}

	overlap := 1 - now.Sub(c.currStart).Seconds()/w.Seconds()
	used := c.prev*max(overlap, 0) + c.curr
	reset = c.currStart.Add(w)
	if used >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	c.curr++
	return max(int(float64(l.cfg.Max)-used-1), 0), reset, true
}

// evict drops keys idle for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.counters {
		if now.Sub(c.currStart) >= 2*l.cfg.Window {
			delete(l.counters, key)
		}
	}
}

// RateLimit returns a middleware that enforces a per-key sliding window rate
// limit. Over the limit it responds 429 with the error envelope. Every
// limited response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset. Keys are never evicted; long-running servers use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a goroutine, stopped by ctx, that
// evicts idle keys every two windows.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return RateLimit(cfg)
	}
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()
	return l.middleware()
}

func (l *limiter) middleware() Middleware {
	limit := strconv.Itoa(l.cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.cfg.Skip != nil && l.cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			remaining, reset, ok := l.take(l.cfg.KeyFunc(r), time.Now())
			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := max(time.Until(reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the client address of r. With trustProxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
