package core

import "time"

// Throttle lets periodic work through at most once per interval, e.g.
// progress reports from a long run.
type Throttle struct {
	every time.Duration
	last  time.Time
	now   func() time.Time
}

// NewThrottle constructs a Throttle with the given interval. A non-positive
// interval lets every call through.
func NewThrottle(every time.Duration) *Throttle {
	return &Throttle{every: every, now: time.Now}
}

// Ready reports whether the interval has elapsed since the last call that
// returned true. The first call is always ready.
func (t *Throttle) Ready() bool {
	now := t.now()
	if t.last.IsZero() || t.every <= 0 || now.Sub(t.last) >= t.every {
		t.last = now
		return true
	}
	return false
}
