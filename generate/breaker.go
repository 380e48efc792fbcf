// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package generate

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type circuitOptions struct {
	name        string
	logger      *zap.Logger
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
}

// CircuitOption configures [WithCircuitBreaker].
type CircuitOption func(*circuitOptions)

// CircuitName names the breaker in state change logs.
func CircuitName(name string) CircuitOption {
	return func(co *circuitOptions) {
		co.name = name
	}
}

// CircuitLogger receives state changes.
func CircuitLogger(logger *zap.Logger) CircuitOption {
	return func(co *circuitOptions) {
		co.logger = logger
	}
}

// HalfOpenRequests is the number of calls let through while half open.
func HalfOpenRequests(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = n
	}
}

// CountResetInterval is the cyclic period of the closed state after which
// failure counts are cleared. Zero never clears them while closed.
func CountResetInterval(d time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = d
	}
}

// OpenStateTimeout is how long the breaker stays open before going half open.
func OpenStateTimeout(d time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = d
	}
}

// TripAfter is the number of consecutive failures which opens the breaker.
func TripAfter(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

// CircuitGenerator is a [Generator] guarded by a circuit breaker.
type CircuitGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker stops calling g after repeated failures. While the
// breaker is open calls fail fast with a [GenerationError] wrapping
// [gobreaker.ErrOpenState]. Calls abandoned by their caller do not count
// as failures.
func WithCircuitBreaker(g Generator, opts ...CircuitOption) *CircuitGenerator {
	co := &circuitOptions{
		name:        "generate",
		logger:      zap.NewNop(),
		maxRequests: 1,
		timeout:     30 * time.Second,
		tripCount:   5,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.tripCount == 0 {
		co.tripCount = 5
	}

	log := co.logger.Named(co.name)

	return &CircuitGenerator{
		next: g,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        co.name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					log.Warn("circuit is now half open and letting some requests through", zap.Uint32("max_requests_allowed_through", co.maxRequests))
				case gobreaker.StateClosed:
					log.Info("circuit has been closed")
				}
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// GenerateContent implements the [Generator] interface.
func (g *CircuitGenerator) GenerateContent(ctx context.Context, model, prompt string) (Content, error) {
	v, err := g.cb.Execute(func() (any, error) {
		return g.next.GenerateContent(ctx, model, prompt)
	})
	if IsUnavailable(err) {
		return Content{}, GenerationError{Model: model, Cause: err}
	}
	if err != nil {
		return Content{}, err
	}
	return v.(Content), nil
}

// Healthy reports false while the breaker is open.
func (g *CircuitGenerator) Healthy(context.Context) bool {
	return g.cb.State() != gobreaker.StateOpen
}
