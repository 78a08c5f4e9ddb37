package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/estate-checkout/internal/retry/backoff"
	"github.com/josh-kwaku/estate-checkout/internal/testutil"
)

func TestRetry_SucceedsFirstTime(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	n, err := Retry(context.Background(), func(context.Context) error { return nil },
		Limit(3),
		Backoff(sleeper, backoff.Constant(time.Second), time.Minute),
	)

	require.NoError(t, err)
	assert.Equal(t, uint(1), n)
	assert.Empty(t, sleeper.Sleeps())
}

func TestRetry_LimitAndBackoff(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	failure := errors.New("boom")

	n, err := Retry(context.Background(), func(context.Context) error { return failure },
		Limit(4),
		Backoff(sleeper, backoff.BinaryExponential(time.Second), time.Minute),
	)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, uint(4), n)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.Sleeps())
}

func TestRetry_BackoffIsCapped(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	_, _ = Retry(context.Background(), func(context.Context) error { return errors.New("x") },
		Limit(4),
		Backoff(sleeper, backoff.BinaryExponential(time.Second), 3*time.Second),
	)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sleeper.Sleeps())
}

func TestRetry_RetryIf(t *testing.T) {
	retriable := errors.New("retriable")
	sleeper := &testutil.RecordingSleeper{}

	calls := 0
	n, err := Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return retriable
		}
		return errors.New("fatal")
	},
		Limit(10),
		RetryIf(func(err error) bool { return errors.Is(err, retriable) }),
		Delay(sleeper, func(uint, error) time.Duration { return 5 * time.Second }),
	)

	assert.EqualError(t, err, "fatal")
	assert.Equal(t, uint(3), n)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.Sleeps())
}

func TestRetry_NonRetriableErrors(t *testing.T) {
	n, err := Retry(context.Background(), func(context.Context) error { return context.Canceled },
		Limit(5),
		NonRetriableErrors(context.Canceled),
	)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint(1), n)
}

func TestRetry_CancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failure := errors.New("boom")

	n, err := Retry(ctx, func(context.Context) error { return failure },
		Limit(5),
		Delay(SleeperFunc(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}), func(uint, error) time.Duration { return time.Hour }),
	)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, uint(1), n)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestUntil(t *testing.T) {
	t.Run("stops on terminal", func(t *testing.T) {
		sleeper := &testutil.RecordingSleeper{}
		n, err := Until(context.Background(), sleeper, backoff.Constant(5*time.Second), 12,
			func(_ context.Context, attempt uint) (bool, error) { return attempt == 4, nil })

		require.NoError(t, err)
		assert.Equal(t, uint(4), n)
		assert.Len(t, sleeper.Sleeps(), 4)
	})

	t.Run("exhausts", func(t *testing.T) {
		sleeper := &testutil.RecordingSleeper{}
		probes := 0
		n, err := Until(context.Background(), sleeper, backoff.Constant(5*time.Second), 12,
			func(context.Context, uint) (bool, error) { probes++; return false, nil })

		assert.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, uint(12), n)
		assert.Equal(t, 12, probes)
	})

	t.Run("probe error aborts", func(t *testing.T) {
		failure := errors.New("lookup failed")
		n, err := Until(context.Background(), &testutil.RecordingSleeper{}, backoff.Constant(time.Second), 12,
			func(_ context.Context, attempt uint) (bool, error) {
				if attempt == 2 {
					return false, failure
				}
				return false, nil
			})

		assert.ErrorIs(t, err, failure)
		assert.Equal(t, uint(2), n)
	})

	t.Run("cancelled before first probe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		probes := 0
		n, err := Until(ctx, DefaultSleeper, backoff.Constant(time.Hour), 12,
			func(context.Context, uint) (bool, error) { probes++; return false, nil })

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, uint(0), n)
		assert.Zero(t, probes)
	})
}

func TestDefaultSleeper(t *testing.T) {
	start := time.Now()
	require.NoError(t, DefaultSleeper.Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, DefaultSleeper.Sleep(ctx, time.Hour), context.Canceled)
}
