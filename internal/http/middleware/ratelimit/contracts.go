package ratelimit

import "time"

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// KeyedLimiter can also release the state held for a key. Long-lived callers
// such as WebSocket connections use it on close.
type KeyedLimiter interface {
	Limiter
	Forget(key string)
}

// Clock is injected so tests control refill.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns time.Now.
func (RealClock) Now() time.Time { return time.Now() }

// NopLimiter never refuses.
type NopLimiter struct{}

func (NopLimiter) Allow(string) bool { return true }
func (NopLimiter) Forget(string)     {}

// NewNopLimiter returns a limiter that allows everything.
func NewNopLimiter() KeyedLimiter { return NopLimiter{} }
