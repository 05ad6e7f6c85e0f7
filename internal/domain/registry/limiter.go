package registry

import "time"

const (
	DefaultRateLimit  = 15
	DefaultRateWindow = time.Second
)

// RateLimiter is a fixed-window counter. The count resets to zero once a full
// window has elapsed since the window opened.
//
// It is not safe for concurrent use; a session only touches it from its
// upstream pump.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	windowStart time.Time
	sent        int
}

// NewRateLimiter allows up to limit events per window. A limit <= 0 disables
// limiting; a window <= 0 falls back to DefaultRateWindow.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{limit: limit, window: window, now: time.Now}
}

// Allow consumes one unit of the current window and reports whether the
// event may pass.
func (l *RateLimiter) Allow() bool {
	if l.limit <= 0 {
		return true
	}

	now := l.now()
	if l.expired(now) {
		l.windowStart = now
		l.sent = 0
	}
	if l.sent >= l.limit {
		return false
	}
	l.sent++
	return true
}

// Used returns the number of events admitted in the current window.
func (l *RateLimiter) Used() int {
	if l.expired(l.now()) {
		return 0
	}
	return l.sent
}

func (l *RateLimiter) expired(now time.Time) bool {
	return l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window
}
