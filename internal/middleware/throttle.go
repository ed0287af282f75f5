package middleware

import (
	"context"
	"sync"
	"time"

	"lingualink/internal/protocol"
	"lingualink/internal/router"
)

// LoginThrottle limits LOGIN_REQUEST frames per connection within a
// fixed window.
type LoginThrottle struct {
	mu       sync.Mutex
	attempts map[uint32]*window
	limit    int
	period   time.Duration
	now      func() time.Time
}

type window struct {
	count int
	start time.Time
}

func NewLoginThrottle(limit int, period time.Duration) *LoginThrottle {
	return &LoginThrottle{
		attempts: make(map[uint32]*window),
		limit:    limit,
		period:   period,
		now:      time.Now,
	}
}

func (l *LoginThrottle) Name() string { return "login-throttle" }

func (l *LoginThrottle) Handle(_ context.Context, req *router.Request) router.Decision {
	if req.Opcode() != protocol.LoginRequest || l.Allow(req.ConnID()) {
		return router.Allow()
	}
	return router.Deny(protocol.LoginFailure, "Too many login attempts, try again later")
}

// Allow counts one attempt for connID and reports whether it is within
// the limit.
func (l *LoginThrottle) Allow(connID uint32) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.attempts[connID]
	if !ok || now.Sub(w.start) >= l.period {
		l.attempts[connID] = &window{count: 1, start: now}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Forget drops the window of a closed connection.
func (l *LoginThrottle) Forget(connID uint32) {
	l.mu.Lock()
	delete(l.attempts, connID)
	l.mu.Unlock()
}

// Cleanup removes windows idle for more than five periods.
func (l *LoginThrottle) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, w := range l.attempts {
		if now.Sub(w.start) > 5*l.period {
			delete(l.attempts, id)
		}
	}
}

func (l *LoginThrottle) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
