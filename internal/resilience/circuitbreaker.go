// Package resilience provides circuit breaking (sony/gobreaker) and retry
// (cenkalti/backoff/v4) for collaborator I/O calls. The embedding client's
// resilient decorator is its only user; vector-store and storage calls are
// not wrapped.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a Breaker.
type CircuitBreakerConfig struct {
	Name                 string
	MaxFailures          uint32
	Timeout              time.Duration
	HalfOpenMaxSuccesses uint32
}

// DefaultCircuitBreakerConfig returns sane defaults for a remote
// collaborator call (embedding/vector/storage).
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                 name,
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// Breaker wraps gobreaker with context-cancellation awareness.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker constructs a Breaker from cfg.
func NewBreaker(cfg CircuitBreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. A context already cancelled before
// entry fails fast without tripping the breaker's failure count.
func (b *Breaker) Execute(ctx context.Context, op string, fn func(context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return memerrors.New(memerrors.KindStorage, op, ErrCircuitOpen)
	}
	return err
}

// State reports the breaker's current state as a lower-case label.
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
