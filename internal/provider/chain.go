// Package provider defines the text generation Provider interface, passive
// health tracking with exponential backoff, and a role-based failover
// chain.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChainEntry configures a single provider in the chain.
type ChainEntry struct {
	Name        string
	Provider    Provider
	Role        Role
	Health      HealthConfig
	FallbackFor []Role // empty = fallback for all roles
}

type chainEntry struct {
	ChainEntry
	health *healthTracker
}

// Status is the externally visible health of one chain entry.
type Status struct {
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Model     string `json:"model"`
	State     string `json:"state"`
	Available bool   `json:"available"`
	Failures  int    `json:"failures"`
}

// ChainOption configures optional Chain behavior.
type ChainOption func(*Chain)

// WithLogger injects a structured logger into the Chain.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// Chain routes completions by role and fails over across providers.
type Chain struct {
	entries []chainEntry
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChain creates a chain from the given entries.
func NewChain(entries []ChainEntry, opts ...ChainOption) (*Chain, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}

	c := &Chain{entries: make([]chainEntry, len(entries))}
	for i, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("%w: entry %q has nil provider", ErrNoProvider, e.Name)
		}
		c.entries[i] = chainEntry{ChainEntry: e, health: newHealthTracker(e.Health)}
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	for i := range c.entries {
		e := &c.entries[i]
		e.health.onStateChange = func(from, to healthState) {
			snap := e.health.snapshot()
			switch to {
			case stateCooldown:
				c.logger.Warn("provider entered cooldown",
					"provider", e.Name, "backoff", snap.backoff, "failures", snap.failures)
			case stateDead:
				c.logger.Error("provider marked dead",
					"provider", e.Name, "total_failures", snap.failures)
			case stateHealthy:
				c.logger.Info("provider revived",
					"provider", e.Name, "previous_state", from.String())
			}
		}
	}

	return c, nil
}

// Start launches the background probe loop for unhealthy providers that
// implement HealthChecker. Calling Start twice is a no-op.
func (c *Chain) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		c.probeLoop(ctx, c.probeInterval())
	}()
}

// Stop cancels the probe loop and waits for it to exit.
func (c *Chain) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Complete sends req to the best available provider for role, failing
// over on retryable errors.
func (c *Chain) Complete(ctx context.Context, role Role, req CompletionRequest) (CompletionResponse, error) {
	candidates := c.candidates(role)
	if len(candidates) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w for role %q", ErrNoProvider, role)
	}

	var lastErr error
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		if !e.health.available() {
			continue
		}

		start := time.Now()
		resp, err := e.Provider.Complete(ctx, req)
		if err == nil {
			e.health.recordSuccess()
			c.logger.Debug("completion served",
				"provider", e.Name, "role", role, "latency", time.Since(start))
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return CompletionResponse{}, err
		}

		e.health.recordFailure()
		c.logger.Warn("provider failed, failing over", "provider", e.Name, "error", err)
	}

	if lastErr != nil {
		c.logger.Error("all providers exhausted", "role", role, "last_error", lastErr)
		return CompletionResponse{}, fmt.Errorf("%w: last error: %w", ErrAllProviders, lastErr)
	}
	c.logger.Error("all providers exhausted", "role", role)
	return CompletionResponse{}, fmt.Errorf("%w for role %q: all candidates unavailable", ErrAllProviders, role)
}

// HasRole reports whether any entry can serve role, directly or as a
// fallback.
func (c *Chain) HasRole(role Role) bool {
	return len(c.candidates(role)) > 0
}

// HealthReport returns the status of every entry in configuration order.
func (c *Chain) HealthReport() []Status {
	report := make([]Status, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		snap := e.health.snapshot()
		report[i] = Status{
			Name:      e.Name,
			Role:      e.Role,
			Model:     e.Provider.ModelName(),
			State:     snap.state.String(),
			Available: snap.available,
			Failures:  snap.failures,
		}
	}
	return report
}

// candidates returns entries for role: direct matches first, then
// fallbacks covering it.
func (c *Chain) candidates(role Role) []*chainEntry {
	var direct, fallbacks []*chainEntry
	for i := range c.entries {
		e := &c.entries[i]
		switch {
		case e.Role == role:
			direct = append(direct, e)
		case e.Role == RoleFallback && covers(e.FallbackFor, role):
			fallbacks = append(fallbacks, e)
		}
	}
	return append(direct, fallbacks...)
}

func covers(roles []Role, role Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c *Chain) probeInterval() time.Duration {
	interval := time.Duration(0)
	for i := range c.entries {
		d := c.entries[i].health.cfg.CheckInterval
		if interval == 0 || d < interval {
			interval = d
		}
	}
	return interval
}

func (c *Chain) probeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probeOnce(ctx)
		}
	}
}

// probeOnce health-checks every entry that needs it.
func (c *Chain) probeOnce(ctx context.Context) {
	for i := range c.entries {
		e := &c.entries[i]
		if !e.health.needsProbe() {
			continue
		}
		checker, ok := e.Provider.(HealthChecker)
		if !ok {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			c.logger.Debug("health probe failed", "provider", e.Name, "error", err)
			continue
		}
		e.health.recordSuccess()
	}
}

// For returns a Provider view of the chain bound to role, for callers
// that only know the Provider interface.
func (c *Chain) For(role Role) Provider {
	return roleProvider{chain: c, role: role}
}

type roleProvider struct {
	chain *Chain
	role  Role
}

func (r roleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return r.chain.Complete(ctx, r.role, req)
}

func (r roleProvider) ModelName() string {
	for _, e := range r.chain.candidates(r.role) {
		if e.health.available() {
			return e.Provider.ModelName()
		}
	}
	return ""
}
