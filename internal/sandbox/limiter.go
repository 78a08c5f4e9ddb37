package sandbox

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter limits operations per key. A denied call reports how long until
// the next one would be allowed.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type localLimiter struct {
	limit rate.Limit
	burst int

	sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter allows perSecond operations per key with a matching burst. A
// non-positive rate disables limiting.
func NewLimiter(perSecond float64) Limiter {
	if perSecond <= 0 {
		return NoLimiter{}
	}
	return &localLimiter{
		limit:    rate.Limit(perSecond),
		burst:    max(1, int(math.Ceil(perSecond))),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) Allow(key string) (bool, time.Duration) {
	l.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.Unlock()

	r := limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

type NoLimiter struct{}

func (NoLimiter) Allow(string) (bool, time.Duration) {
	return true, 0
}
