package identity

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const defaultMaxTracked = 10_000

// Throttled limits sign-in attempts per email before calling the inner
// Authenticator.
type Throttled struct {
	inner      Authenticator
	limit      rate.Limit
	burst      int
	maxTracked int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ Authenticator = (*Throttled)(nil)

// NewThrottled wraps inner with a token bucket of perSecond and burst per email.
func NewThrottled(inner Authenticator, perSecond float64, burst int) *Throttled {
	return &Throttled{
		inner:      inner,
		limit:      rate.Limit(perSecond),
		burst:      burst,
		maxTracked: defaultMaxTracked,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// SignIn implements Authenticator.
func (t *Throttled) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if !t.limiter(NormalizeEmail(email)).Allow() {
		return Identity{}, newError(ErrRateLimited, CodeTooManyAttempts)
	}
	return t.inner.SignIn(ctx, email, password)
}

func (t *Throttled) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.limiters[key]; ok {
		return l
	}
	if len(t.limiters) >= t.maxTracked {
		t.pruneLocked()
	}
	l := rate.NewLimiter(t.limit, t.burst)
	t.limiters[key] = l
	return l
}

// pruneLocked drops limiters whose bucket has refilled; they carry no state
// a fresh limiter would not.
func (t *Throttled) pruneLocked() {
	for k, l := range t.limiters {
		if l.Tokens() >= float64(t.burst) {
			delete(t.limiters, k)
		}
	}
}
