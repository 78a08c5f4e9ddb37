package retry

import (
	"context"
	"errors"

	"github.com/josh-kwaku/estate-checkout/internal/retry/backoff"
)

var ErrExhausted = errors.New("retry: attempts exhausted")

type Action func(ctx context.Context) error

// Retry runs action until it succeeds or a strategy declines another
// attempt. It returns the number of attempts made and the last error.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action(ctx)
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if !s(ctx, i, err) {
				return i, err
			}
		}

		if ctx.Err() != nil {
			return i, err
		}
	}
}

// Probe inspects a polled resource once. done reports a terminal state; a
// non-nil error aborts polling.
type Probe func(ctx context.Context, attempt uint) (done bool, err error)

// Until waits interval(attempt) before each probe and stops on the first
// terminal result, the first probe error, cancellation, or after
// maxAttempts probes (ErrExhausted). Probes never overlap.
func Until(ctx context.Context, s Sleeper, interval backoff.Strategy, maxAttempts uint, probe Probe) (uint, error) {
	for i := uint(1); i <= maxAttempts; i++ {
		if err := s.Sleep(ctx, interval(i)); err != nil {
			return i - 1, err
		}

		done, err := probe(ctx, i)
		if err != nil {
			return i, err
		}
		if done {
			return i, nil
		}
	}
	return maxAttempts, ErrExhausted
}
