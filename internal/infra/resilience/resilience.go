// Package resilience provides the fault-tolerance patterns used around
// institution interactions: retry with exponential backoff for transient
// login failures, and a circuit breaker that fails the remaining
// relationships fast once the network itself looks dead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds retry parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
			wait := backoff + jitter

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewInstitutionBreaker creates the circuit breaker the fetch loop threads
// every relationship through. Relationships run sequentially and each can
// spend minutes in provider timeouts; once three in a row have failed with
// network-class errors the remaining ones fail immediately instead, which is
// the behaviour wanted when the local network (rather than one institution)
// is down. Callers classify with IsNetworkError and report only those
// failures to the breaker: a wrong password or a changed page layout at one
// institution says nothing about the next.
func NewInstitutionBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,               // half-open: probe with one relationship
		Timeout:     2 * time.Minute, // open -> half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// IsNetworkError reports whether err indicates a connectivity failure rather
// than an institution-specific one (bad credentials, changed markup, invalid
// config). Only connectivity failures count toward tripping the institution
// breaker.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
