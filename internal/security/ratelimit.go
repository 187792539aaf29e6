package security

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a client exceeds its request budget.
var ErrRateLimited = errors.New("security: rate limit exceeded")

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size. Defaults to twice the rate, at least 1.
	Burst int `yaml:"burst"`

	// IdleTTL drops clients not seen for this long. Defaults to 3m.
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// Enabled reports whether limiting is configured.
func (c RateLimitConfig) Enabled() bool { return c.RequestsPerSecond > 0 }

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key (normally the remote
// IP). Idle clients are pruned lazily on access, so no goroutine is
// needed. A disabled limiter allows everything.
type RateLimiter struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	clients   map[string]*client
	now       func() time.Time
	lastPrune time.Time
}

// NewRateLimiter creates a limiter from cfg, applying defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.RequestsPerSecond*2))
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 3 * time.Minute
	}
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) error {
	if !rl.cfg.Enabled() {
		return nil
	}

	rl.mu.Lock()
	now := rl.now()
	rl.pruneLocked(now)
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	allowed := c.limiter.AllowN(now, 1)
	rl.mu.Unlock()

	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// pruneLocked drops idle clients at most once per IdleTTL.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.cfg.IdleTTL {
		return
	}
	rl.lastPrune = now
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.cfg.IdleTTL {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects requests over budget with 429, keyed by remote IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := rl.Allow(ClientIP(r)); err != nil {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}
