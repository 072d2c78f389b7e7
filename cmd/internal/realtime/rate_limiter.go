package realtime

import "time"

// frameLimiter allows at most limit inbound frames in any window-long span.
// It keeps the timestamps of the last limit frames in a ring and is owned by a
// single read loop, so it carries no lock.
type frameLimiter struct {
	window time.Duration
	ring   []time.Time
	next   int
	filled bool
}

func newFrameLimiter(limit int, window time.Duration) *frameLimiter {
	if limit <= 0 {
		limit = rateLimitEvents
	}
	if window <= 0 {
		window = rateLimitWindow
	}
	return &frameLimiter{window: window, ring: make([]time.Time, limit)}
}

// Allow records a frame at now and reports whether it is within the limit.
func (l *frameLimiter) Allow(now time.Time) bool {
	// The slot about to be overwritten holds the oldest of the last limit frames.
	if l.filled && now.Sub(l.ring[l.next]) < l.window {
		return false
	}
	l.ring[l.next] = now
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.filled = true
	}
	return true
}
