package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/ecommerce-discovery/pkg/errors"
	"github.com/utafrali/ecommerce-discovery/pkg/httputil"
	"github.com/utafrali/ecommerce-discovery/pkg/logger"
)

// RateLimitConfig configures the per-client token bucket. A zero RPS
// disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long an unseen client keeps its bucket.
	IdleTTL time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clients struct {
	mu    sync.Mutex
	byIP  map[string]*client
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

func (c *clients) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cl, ok := c.byIP[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.byIP[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// evict drops buckets idle for longer than the TTL.
func (c *clients) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for ip, cl := range c.byIP {
		if now.Sub(cl.lastSeen) > c.ttl {
			delete(c.byIP, ip)
		}
	}
}

func (c *clients) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byIP)
}

// RateLimit rejects clients exceeding cfg with 429 RATE_LIMITED. Buckets are
// keyed by client IP and swept on every IdleTTL tick while requests flow.
func RateLimit(cfg RateLimitConfig, l *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 3 * time.Minute
	}
	store := &clients{
		byIP:  make(map[string]*client),
		limit: rate.Limit(cfg.RPS),
		burst: cfg.Burst,
		ttl:   cfg.IdleTTL,
		now:   time.Now,
	}
	return rateLimit(store, l)
}

func rateLimit(store *clients, l *slog.Logger) func(http.Handler) http.Handler {
	var (
		sweepMu   sync.Mutex
		lastSweep = store.now()
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sweepMu.Lock()
			if store.now().Sub(lastSweep) > store.ttl {
				lastSweep = store.now()
				sweepMu.Unlock()
				store.evict()
			} else {
				sweepMu.Unlock()
			}

			ip := clientIP(r)
			if !store.get(ip).Allow() {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      apperrors.CodeRateLimited,
						Message:   "too many requests",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
