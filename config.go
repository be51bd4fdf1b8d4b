package spallocator

import (
	"log/slog"
	"time"
)

// poolConfig holds every tunable of a Pool, assembled by applying Option
// values over defaultPoolConfig. Mirrors the functional-options shape used
// throughout the ambient stack this module's logging and health-check
// machinery is grounded on.
type poolConfig struct {
	logger           *slog.Logger
	healthChecks     bool
	healthInterval   time.Duration
	circuitBreaker   bool
	breakerThreshold int
	breakerCooldown  time.Duration
	maxAllocLatency  time.Duration
	secure           bool // zero slot memory before reuse
	debug            bool // debug-level log line for every successful allocation
}

func defaultPoolConfig() poolConfig {
	return poolConfig{
		logger:           slog.Default(),
		healthChecks:     false,
		healthInterval:   30 * time.Second,
		circuitBreaker:   false,
		breakerThreshold: 5,
		breakerCooldown:  10 * time.Second,
		maxAllocLatency:  time.Millisecond,
		secure:           false,
		debug:            false,
	}
}

// Option configures a Pool at construction time. Options are applied in
// the order passed to New.
type Option func(*poolConfig)

// WithLogger overrides the Pool's structured logger. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *poolConfig) { c.logger = l }
}

// WithHealthChecks starts a background goroutine that periodically
// samples Stats and recomputes the HealthReport, at the given interval.
func WithHealthChecks(interval time.Duration) Option {
	return func(c *poolConfig) {
		c.healthChecks = true
		c.healthInterval = interval
	}
}

// WithCircuitBreaker enables the allocation circuit breaker: once
// threshold consecutive allocation failures are observed, Allocate returns
// ErrCircuitBreakerOpen for cooldown before probing again.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(c *poolConfig) {
		c.circuitBreaker = true
		c.breakerThreshold = threshold
		c.breakerCooldown = cooldown
	}
}

// WithSecure zeroes a slot's memory before it is handed out again, trading
// allocation throughput for not leaking a previous occupant's bytes.
func WithSecure() Option {
	return func(c *poolConfig) { c.secure = true }
}

// WithDebug logs every successful allocation at debug level (size, total,
// class index, latency). It adds no extra consistency checks.
func WithDebug() Option {
	return func(c *poolConfig) { c.debug = true }
}

// WithMaxAllocLatency sets the latency threshold past which Stats counts
// an allocation as slow, feeding into HealthReport.
func WithMaxAllocLatency(d time.Duration) Option {
	return func(c *poolConfig) { c.maxAllocLatency = d }
}
