package app

import (
	"delivery-tracking/internal/config"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/metrics"
)

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

// newInboundLimiter limits events per WebSocket connection. The gateway
// forgets a connection's bucket when it closes, so no TTL is needed.
func newInboundLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.KeyedLimiter {
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:  cfg.WS.InboundRate,
		Burst: cfg.WS.InboundBurst,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimitMiddleware(logger logx.Logger, m *metrics.Metrics, limiter ratelimit.Limiter) *ratelimit.Middleware {
	return ratelimit.New(logger, m.RateLimited, limiter)
}
