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

	"github.com/jonboulle/clockwork"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window and key. Zero or negative disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc func(*http.Request) string
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// window holds the counts of the current fixed window and the one before it.
// The sliding estimate weights the previous count by how much of it still
// overlaps the last Window.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

// RateLimiter limits requests per key with a sliding window estimate.
type RateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &RateLimiter{cfg: cfg, windows: make(map[string]*window)}
}

// take records a request for key if it fits. It returns the remaining
// allowance and when the current window ends.
func (rl *RateLimiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	size := rl.cfg.Window
	start := now.Truncate(size)

	w, found := rl.windows[key]
	switch {
	case !found:
		w = &window{start: start}
		rl.windows[key] = w
	case start.Sub(w.start) >= 2*size:
		*w = window{start: start}
	case start.Sub(w.start) >= size:
		*w = window{start: start, prev: w.curr}
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(size)
	estimate := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.start.Add(size)

	if estimate >= float64(rl.cfg.Max) {
		return 0, reset, false
	}
	w.curr++
	return max(rl.cfg.Max-int(math.Ceil(estimate+1)), 0), reset, true
}

// evict drops keys idle for two full windows.
func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if now.Sub(w.start) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// StartEviction removes stale keys every two windows until ctx is done.
func (rl *RateLimiter) StartEviction(ctx context.Context) {
	ticker := rl.cfg.Clock.NewTicker(2 * rl.cfg.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.Chan():
				rl.evict(now)
			}
		}
	}()
}

// Middleware enforces the limit. Responses carry X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset; rejected requests get 429 with
// Retry-After.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if rl.cfg.Max <= 0 || rl.cfg.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := rl.cfg.Clock.Now()
			remaining, reset, ok := rl.take(rl.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				wait := max(reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is a shorthand for a limiter whose stale keys are evicted until
// ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := NewRateLimiter(cfg)
	if cfg.Max > 0 && cfg.Window > 0 {
		rl.StartEviction(ctx)
	}
	return rl.Middleware()
}

// ClientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
