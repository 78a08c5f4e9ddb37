package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested delays instead of waiting.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration

	// OnSleep, when set, runs before each recorded sleep returns.
	OnSleep func(d time.Duration)
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	hook := s.OnSleep
	s.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}
