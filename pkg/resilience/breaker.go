// Package resilience provides the circuit breaker watching Dashboard calls
// and the bounded loop used to re-ask the operator for input.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// ServiceBreaker tracks the health of a remote service with gobreaker. It
// only observes: every operation runs regardless of state, and outcomes are
// counted when the breaker admits them. State changes are reported through
// WithOnStateChange.
type ServiceBreaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[any]
}

// BreakerOption configures a ServiceBreaker
type BreakerOption func(*gobreaker.Settings)

// WithTimeout sets the period of the open state before becoming half-open
func WithTimeout(d time.Duration) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.Timeout = d
	}
}

// WithFailureThreshold sets the number of consecutive failures before opening
func WithFailureThreshold(n uint32) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

// WithOnStateChange sets a callback for state changes
func WithOnStateChange(fn func(name string, from, to string)) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			fn(name, from.String(), to.String())
		}
	}
}

// NewServiceBreaker creates a new circuit breaker.
// Default settings:
// - MaxRequests: 1 (outcomes counted in half-open state)
// - Interval: 60s (stat collection window in closed state)
// - Timeout: 30s (how long to stay open before trying half-open)
// - FailureThreshold: 5 (consecutive failures to trip)
func NewServiceBreaker(name string, opts ...BreakerOption) *ServiceBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	for _, opt := range opts {
		opt(&settings)
	}

	return &ServiceBreaker{cb: gobreaker.NewTwoStepCircuitBreaker[any](settings)}
}

// Observe runs fn and returns its result unchanged. The outcome is fed to
// the breaker when it admits the call; an open breaker never stops fn.
func Observe[T any](b *ServiceBreaker, fn func() (T, error)) (T, error) {
	done, allowErr := b.cb.Allow()
	result, err := fn()
	if allowErr == nil {
		done(err == nil)
	}
	return result, err
}

// State returns the current state of the circuit breaker
func (b *ServiceBreaker) State() string {
	return b.cb.State().String()
}

// IsOpen returns true if the service has been failing consecutively
func (b *ServiceBreaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// NewDashboardBreaker returns the breaker watching Dashboard API calls.
// threshold is the number of consecutive transport failures that open it.
func NewDashboardBreaker(threshold uint32, onStateChange func(name, from, to string)) *ServiceBreaker {
	opts := []BreakerOption{
		WithFailureThreshold(threshold),
		WithTimeout(30 * time.Second),
	}
	if onStateChange != nil {
		opts = append(opts, WithOnStateChange(onStateChange))
	}
	return NewServiceBreaker("dashboard", opts...)
}
