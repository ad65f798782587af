package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker is open")

type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	Timeout          time.Duration // how long to stay open before retrying
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker is a two-state (closed/open) breaker. After
// FailureThreshold consecutive failures it rejects calls for Timeout, then
// closes again and lets the next call through.
type CircuitBreaker struct {
	config BreakerConfig

	mu          sync.Mutex
	open        bool
	failures    uint32
	lastFailure time.Time
}

func NewBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultBreakerConfig().Timeout
	}
	return &CircuitBreaker{config: config}
}

func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.mu.Lock()
	if cb.open {
		if time.Since(cb.lastFailure) < cb.config.Timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.open = false
		cb.failures = 0
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.config.FailureThreshold {
			cb.open = true
			cb.failures = 0
		}
		return err
	}

	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open = false
	cb.failures = 0
	cb.lastFailure = time.Time{}
}
