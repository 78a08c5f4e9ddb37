package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/josh-kwaku/estate-checkout/internal/retry/backoff"
)

// Strategy decides whether a failed action should run again. Strategies run
// in order and may sleep, so delaying strategies belong last.
type Strategy func(ctx context.Context, attempts uint, err error) bool

// Limit caps the total number of attempts, the first one included.
func Limit(maxAttempts uint) Strategy {
	return func(_ context.Context, attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetryIf retries only errors the predicate accepts.
func RetryIf(retryable func(error) bool) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		return retryable(err)
	}
}

func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, e := range nonRetriable {
			if errors.Is(err, e) {
				return false
			}
		}
		return true
	}
}

// Backoff sleeps according to the schedule, capped at maxBackoff. A sleep
// interrupted by cancellation stops the retry.
func Backoff(s Sleeper, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return Delay(s, func(attempts uint, _ error) time.Duration {
		return time.Duration(math.Min(float64(maxBackoff), float64(strategy(attempts))))
	})
}

// Delay sleeps for a duration derived from the failed attempt, e.g. a
// server supplied Retry-After.
func Delay(s Sleeper, delay func(attempts uint, err error) time.Duration) Strategy {
	return func(ctx context.Context, attempts uint, err error) bool {
		return s.Sleep(ctx, delay(attempts, err)) == nil
	}
}
