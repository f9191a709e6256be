package ratelimit

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const limiterShards = 16

// Config stores TokenBucketLimiter settings.
type Config struct {
	Rate  float64 // tokens per second
	Burst int     // bucket capacity
	// TTL evicts buckets idle for longer than it; zero keeps them until Forget.
	TTL time.Duration
	// MaxBuckets caps live buckets; a new key beyond it is refused. Zero is unlimited.
	MaxBuckets int
}

// TokenBucketLimiter keeps one token bucket per key. Keys are spread over
// shards so unrelated connections do not contend on one lock.
type TokenBucketLimiter struct {
	cfg    Config
	clock  Clock
	live   atomic.Int64
	shards [limiterShards]limiterShard
}

type limiterShard struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucketLimiter creates a limiter. Non-positive rate or burst fall
// back to one.
func NewTokenBucketLimiter(clock Clock, cfg Config) *TokenBucketLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxBuckets < 0 {
		cfg.MaxBuckets = 0
	}
	l := &TokenBucketLimiter{cfg: cfg, clock: clock}
	for i := range l.shards {
		l.shards[i].buckets = make(map[string]*bucket)
	}
	return l
}

// Allow takes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) bool {
	now := l.clock.Now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	l.sweepLocked(s, now)

	b, ok := s.buckets[key]
	if !ok {
		if l.cfg.MaxBuckets > 0 && l.live.Load() >= int64(l.cfg.MaxBuckets) {
			return false
		}
		b = &bucket{tokens: float64(l.cfg.Burst), last: now}
		s.buckets[key] = b
		l.live.Add(1)
	}
	return b.take(now, l.cfg.Rate, float64(l.cfg.Burst))
}

// Forget drops the bucket for key.
func (l *TokenBucketLimiter) Forget(key string) {
	s := l.shardFor(key)
	s.mu.Lock()
	if _, ok := s.buckets[key]; ok {
		delete(s.buckets, key)
		l.live.Add(-1)
	}
	s.mu.Unlock()
}

// Len returns the number of live buckets.
func (l *TokenBucketLimiter) Len() int {
	return int(l.live.Load())
}

func (b *bucket) take(now time.Time, rate, burst float64) bool {
	if dt := now.Sub(b.last); dt > 0 {
		b.tokens = min(burst, b.tokens+dt.Seconds()*rate)
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked evicts idle buckets of s at most once per half TTL.
func (l *TokenBucketLimiter) sweepLocked(s *limiterShard, now time.Time) {
	ttl := l.cfg.TTL
	if ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(max(ttl/2, time.Second))

	for k, b := range s.buckets {
		if now.Sub(b.last) > ttl {
			delete(s.buckets, k)
			l.live.Add(-1)
		}
	}
}

func (l *TokenBucketLimiter) shardFor(key string) *limiterShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%limiterShards]
}
