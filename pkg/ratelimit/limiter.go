package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the full burst
	Reset()
}

// Throttle is a token bucket over golang.org/x/time/rate
type Throttle struct {
	mu    sync.Mutex
	every time.Duration
	burst int
	lim   *rate.Limiter
}

// NewInterval allows one request per interval with no burst. A zero or
// negative interval disables pacing.
func NewInterval(interval time.Duration) *Throttle {
	return newThrottle(interval, 1)
}

// NewPerMinute allows requestsPerMinute with the given burst
func NewPerMinute(requestsPerMinute, burst int) *Throttle {
	if requestsPerMinute <= 0 {
		return newThrottle(0, burst)
	}
	return newThrottle(time.Minute/time.Duration(requestsPerMinute), burst)
}

func newThrottle(every time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	t := &Throttle{every: every, burst: burst}
	t.lim = t.build()
	return t
}

func (t *Throttle) build() *rate.Limiter {
	limit := rate.Inf
	if t.every > 0 {
		limit = rate.Every(t.every)
	}
	return rate.NewLimiter(limit, t.burst)
}

func (t *Throttle) limiter() *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lim
}

func (t *Throttle) Allow() bool {
	return t.limiter().Allow()
}

func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter().Wait(ctx)
}

func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lim = t.build()
}

// Interval is the spacing between requests once the burst is spent
func (t *Throttle) Interval() time.Duration {
	return t.every
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
