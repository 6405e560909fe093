package searcher

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks the rate-limit cooldown window. While the window is open,
// new searches are rejected locally without touching the network. A single
// Limiter is typically shared by every search session against the same
// backend.
type Limiter struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewLimiter creates a limiter with no active cooldown.
func NewLimiter() *Limiter {
	return &Limiter{now: time.Now}
}

// SetClock overrides the limiter's clock for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Trip opens the cooldown window for d from now.
func (l *Limiter) Trip(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.until = l.now().Add(d)
}

// Limited reports whether the cooldown window is still open.
func (l *Limiter) Limited() bool {
	return l.Remaining() > 0
}

// Remaining returns how much of the cooldown window is left, zero when none.
func (l *Limiter) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.until.Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Seconds returns the remaining cooldown rounded up to whole seconds, the
// value UIs show in a countdown.
func (l *Limiter) Seconds() int {
	d := l.Remaining()
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Countdown invokes fn once a second with the remaining whole seconds until
// the window closes or ctx is cancelled, ending with a final zero. It is
// purely observational; nothing in the pipeline depends on it.
func (l *Limiter) Countdown(ctx context.Context, fn func(seconds int)) {
	s := l.Seconds()
	fn(s)
	if s == 0 {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := l.Seconds()
			fn(s)
			if s == 0 {
				return
			}
		}
	}
}
