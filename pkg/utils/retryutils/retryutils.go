// Package retryutils holds the bounded wait loops used for every remote
// readiness check.
package retryutils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kgateway-dev/gwsuite/pkg/metrics"
)

// ErrTimeout is returned when a wait exhausts its retry budget.
var ErrTimeout = errors.New("timed out waiting for condition")

const (
	strategyPoll      = "poll"
	strategyFibonacci = "fibonacci"
)

var waitDuration = metrics.NewHistogram(
	metrics.HistogramOpts{
		Subsystem: "wait",
		Name:      "duration_seconds",
		Help:      "Duration of readiness waits",
	},
	[]string{"strategy", "result"},
)

func observe(strategy string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "timeout"
	}
	waitDuration.Observe(time.Since(start).Seconds(),
		metrics.Label{Name: "strategy", Value: strategy},
		metrics.Label{Name: "result", Value: result},
	)
}

// Poll calls fn every interval until it succeeds or timeout elapses.
// The returned error wraps both ErrTimeout and the last error returned by fn.
func Poll(ctx context.Context, timeout, interval time.Duration, fn func(ctx context.Context) error) (err error) {
	defer func(start time.Time) { observe(strategyPoll, start, err) }(time.Now())
	if interval <= 0 {
		interval = time.Second
	}
	attempts := uint(timeout / interval)
	if attempts == 0 {
		attempts = 1
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	err = retry.Do(
		func() error {
			lastErr = fn(ctx)
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		// retry-go reports the context error when the deadline wins the race
		if lastErr != nil {
			err = lastErr
		}
		return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
	}
	return nil
}

// PollFibonacci calls fn up to attempts times, sleeping base*fib(n) between tries.
func PollFibonacci(ctx context.Context, attempts uint, base time.Duration, fn func(ctx context.Context) error) (err error) {
	defer func(start time.Time) { observe(strategyFibonacci, start, err) }(time.Now())
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(FibonacciDelay(base)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, attempts, err)
	}
	return nil
}

// FibonacciDelay returns a retry delay of base multiplied by the n-th Fibonacci number.
func FibonacciDelay(base time.Duration) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		return base * time.Duration(Fibonacci(n+1))
	}
}

// Fibonacci returns the n-th Fibonacci number, with Fibonacci(0) == 0.
func Fibonacci(n uint) uint64 {
	var a, b uint64 = 0, 1
	for range n {
		a, b = b, a+b
	}
	return a
}
