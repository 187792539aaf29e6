package provider

import (
	"sync"
	"time"
)

// healthState is the availability state of a provider.
type healthState int

const (
	stateHealthy  healthState = iota
	stateCooldown             // transient failure, backing off
	stateDead                 // too many consecutive failures
)

func (s healthState) String() string {
	switch s {
	case stateHealthy:
		return "healthy"
	case stateCooldown:
		return "cooldown"
	case stateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HealthConfig controls health tracking behavior. Zero values select the
// defaults noted on each field.
type HealthConfig struct {
	// InitialBackoff is the cooldown after the first failure. Default: 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the exponential backoff. Default: 60s.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// MaxFailures is the number of consecutive failures before the
	// provider is marked dead. Default: 5.
	MaxFailures int `yaml:"max_failures"`

	// CheckInterval is how often a started chain probes unhealthy
	// providers. Default: 10s.
	CheckInterval time.Duration `yaml:"check_interval"`
}

func (c *HealthConfig) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Second
	}
}

// healthTracker monitors one provider: exponential backoff on failure,
// dead after MaxFailures consecutive failures, healthy on any success.
type healthTracker struct {
	cfg HealthConfig

	// onStateChange runs outside the lock on every transition.
	onStateChange func(from, to healthState)

	mu              sync.Mutex
	state           healthState
	failures        int
	backoff         time.Duration
	cooldownExpires time.Time

	now func() time.Time
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	cfg.defaults()
	return &healthTracker{cfg: cfg, now: time.Now}
}

// available reports whether the provider may take a request. A cooldown
// ends once its backoff has elapsed.
func (h *healthTracker) available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.availableLocked()
}

func (h *healthTracker) availableLocked() bool {
	switch h.state {
	case stateHealthy:
		return true
	case stateCooldown:
		return !h.now().Before(h.cooldownExpires)
	default:
		return false
	}
}

func (h *healthTracker) recordSuccess() {
	h.mu.Lock()
	prev := h.state
	h.state = stateHealthy
	h.failures = 0
	h.backoff = 0
	h.mu.Unlock()

	h.notify(prev, stateHealthy)
}

func (h *healthTracker) recordFailure() {
	h.mu.Lock()
	prev := h.state
	h.failures++

	next := stateCooldown
	if h.failures >= h.cfg.MaxFailures {
		next = stateDead
	} else {
		h.backoff = min(max(h.backoff*2, h.cfg.InitialBackoff), h.cfg.MaxBackoff)
		h.cooldownExpires = h.now().Add(h.backoff)
	}
	h.state = next
	h.mu.Unlock()

	h.notify(prev, next)
}

func (h *healthTracker) notify(from, to healthState) {
	if from != to && h.onStateChange != nil {
		h.onStateChange(from, to)
	}
}

// needsProbe is true for dead providers and for expired cooldowns.
func (h *healthTracker) needsProbe() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateDead || (h.state == stateCooldown && h.availableLocked())
}

// healthSnapshot is a consistent view of the tracker.
type healthSnapshot struct {
	state     healthState
	failures  int
	backoff   time.Duration
	available bool
}

func (h *healthTracker) snapshot() healthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return healthSnapshot{
		state:     h.state,
		failures:  h.failures,
		backoff:   h.backoff,
		available: h.availableLocked(),
	}
}
