package analyses

import (
	"sync"
	"time"
)

const pollLimitWindow = 200 * time.Millisecond

// pollLimiter throttles progress polling per client and job. A poll arriving inside the
// window is answered with 429 instead of a store read.
type pollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *pollLimiter) Allow(clientID, jobID string) bool {
	if l == nil {
		return true
	}
	key := clientID + "|" + jobID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	l.lastHit[key] = now
	l.evictLocked(now)
	return true
}

// evictLocked drops entries older than the window once the map grows.
func (l *pollLimiter) evictLocked(now time.Time) {
	if len(l.lastHit) < 1024 {
		return
	}
	for k, t := range l.lastHit {
		if now.Sub(t) >= l.window {
			delete(l.lastHit, k)
		}
	}
}

func (l *pollLimiter) RetryAfterMs() int64 {
	if l == nil {
		return pollLimitWindow.Milliseconds()
	}
	return l.window.Milliseconds()
}
