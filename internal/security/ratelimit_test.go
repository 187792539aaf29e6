package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.Now
	return rl, clock
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3})
	for i := range 3 {
		if err := rl.Allow("10.0.0.1"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := rl.Allow("10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("4th request: err = %v, want ErrRateLimited", err)
	}

	// Other clients have their own bucket.
	if err := rl.Allow("10.0.0.2"); err != nil {
		t.Errorf("other client limited: %v", err)
	}

	clock.Advance(time.Second)
	if err := rl.Allow("10.0.0.1"); err != nil {
		t.Errorf("after refill: %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	for range 1000 {
		if err := rl.Allow("x"); err != nil {
			t.Fatalf("disabled limiter rejected: %v", err)
		}
	}
	if rl.Clients() != 0 {
		t.Errorf("disabled limiter tracked %d clients", rl.Clients())
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.2})
	if rl.cfg.Burst != 1 {
		t.Errorf("Burst = %d, want 1", rl.cfg.Burst)
	}
	if rl.cfg.IdleTTL != 3*time.Minute {
		t.Errorf("IdleTTL = %v", rl.cfg.IdleTTL)
	}
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(RateLimitConfig{RequestsPerSecond: 10, IdleTTL: time.Minute})
	_ = rl.Allow("a")
	_ = rl.Allow("b")

	clock.Advance(2 * time.Minute)
	_ = rl.Allow("c")

	if n := rl.Clients(); n != 1 {
		t.Errorf("Clients = %d, want 1 after pruning", n)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 429]", codes)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"192.0.2.1:80":    "192.0.2.1",
		"[2001:db8::1]:1": "2001:db8::1",
		"[2001:db8::2]":   "2001:db8::2",
		"plain":           "plain",
	}
	for addr, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		if got := ClientIP(r); got != want {
			t.Errorf("ClientIP(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = rl.Allow(string(rune('a' + i)))
			}
		}()
	}
	wg.Wait()
	if rl.Clients() != 20 {
		t.Errorf("Clients = %d, want 20", rl.Clients())
	}
}
