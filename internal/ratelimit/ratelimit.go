// Package ratelimit throttles mutating social actions per actor.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Action names a throttled kind of request.
type Action string

const (
	ActionFollow  Action = "follow"
	ActionReact   Action = "react"
	ActionComment Action = "comment"
	ActionRanking Action = "ranking"
	ActionReport  Action = "report"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	// Allow records one request for key and reports whether it fits in the
	// current window.
	Allow(key string, limit int, window time.Duration) bool

	// RetryAfter returns the time left until the key's window resets.
	RetryAfter(key string) time.Duration
}

// MemoryLimiter keeps windows in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	resetTime time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetTime) {
		l.buckets[key] = &bucket{count: 1, resetTime: now.Add(window)}
		return limit > 0
	}

	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Remaining returns how many requests key may still make in its window.
func (l *MemoryLimiter) Remaining(key string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !l.now().Before(b.resetTime) {
		return limit
	}
	if remaining := limit - b.count; remaining > 0 {
		return remaining
	}
	return 0
}

func (l *MemoryLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}
	if d := b.resetTime.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Cleanup removes expired windows.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if !now.Before(b.resetTime) {
			delete(l.buckets, key)
		}
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *MemoryLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Policy assigns a per-window limit to each action. Actions without a limit
// are not throttled.
type Policy struct {
	limiter Limiter
	limits  map[Action]int
	window  time.Duration
}

func NewPolicy(limiter Limiter, window time.Duration, limits map[Action]int) *Policy {
	return &Policy{limiter: limiter, limits: limits, window: window}
}

// Allow records one action by actorID. When the action is over its limit it
// returns false and the time until the actor may try again.
func (p *Policy) Allow(actorID string, action Action) (bool, time.Duration) {
	limit, ok := p.limits[action]
	if !ok {
		return true, 0
	}
	key := string(action) + ":" + actorID
	if p.limiter.Allow(key, limit, p.window) {
		return true, 0
	}
	return false, p.limiter.RetryAfter(key)
}

var _ Limiter = (*MemoryLimiter)(nil)
