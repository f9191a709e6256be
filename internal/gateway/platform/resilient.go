package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/logx"
)

// Gateway is the set of platform calls used by delivery tracking.
type Gateway interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	ListAvailableCouriers(ctx context.Context, role domain.Role) ([]User, error)
	NotifyDeliveryStatus(ctx context.Context, n StatusNotice) error
}

type counter interface {
	Inc()
}

// RetryConfig describes retry, timeout and breaker behaviour.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// CallTimeout bounds a single attempt; zero leaves the caller's deadline.
	CallTimeout time.Duration

	// BreakerFailures consecutive failures open the breaker for BreakerOpenTimeout.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

// ResilientGateway retries transient failures with exponential backoff and
// stops calling the platform while the circuit breaker is open. Errors other
// than NotFound leave it wrapped in apperr.ErrUpstreamUnavailable.
type ResilientGateway struct {
	next    Gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
	breaker *gobreaker.CircuitBreaker
}

// NewResilientGateway wraps next. It returns nil when next is nil.
func NewResilientGateway(next Gateway, logger logx.Logger, retries counter, cfg RetryConfig) *ResilientGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "platform",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logx.String("breaker", name),
				logx.String("from", from.String()),
				logx.String("to", to.String()),
			)
		},
	})
	return &ResilientGateway{next: next, logger: logger, retries: retries, cfg: cfg, breaker: breaker}
}

// BreakerState reports the current breaker state.
func (g *ResilientGateway) BreakerState() gobreaker.State {
	return g.breaker.State()
}

// GetOrder implements Gateway.
func (g *ResilientGateway) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return retry(ctx, g, "GetOrder", func(ctx context.Context) (*Order, error) {
		return g.next.GetOrder(ctx, orderID)
	})
}

// GetRestaurant implements Gateway.
func (g *ResilientGateway) GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	return retry(ctx, g, "GetRestaurant", func(ctx context.Context) (*Restaurant, error) {
		return g.next.GetRestaurant(ctx, restaurantID)
	})
}

// GetUser implements Gateway.
func (g *ResilientGateway) GetUser(ctx context.Context, userID string) (*User, error) {
	return retry(ctx, g, "GetUser", func(ctx context.Context) (*User, error) {
		return g.next.GetUser(ctx, userID)
	})
}

// ListAvailableCouriers implements Gateway.
func (g *ResilientGateway) ListAvailableCouriers(ctx context.Context, role domain.Role) ([]User, error) {
	return retry(ctx, g, "ListAvailableCouriers", func(ctx context.Context) ([]User, error) {
		return g.next.ListAvailableCouriers(ctx, role)
	})
}

// NotifyDeliveryStatus implements Gateway.
func (g *ResilientGateway) NotifyDeliveryStatus(ctx context.Context, n StatusNotice) error {
	_, err := retry(ctx, g, "NotifyDeliveryStatus", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.NotifyDeliveryStatus(ctx, n)
	})
	return err
}

func retry[T any](ctx context.Context, g *ResilientGateway, method string, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		res, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := g.withTimeout(ctx)
			defer cancel()
			return call(callCtx)
		})
		if err == nil {
			return res.(T), nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(err) {
			break
		}

		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("platform gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return zero, upstream(lastErr)
}

func (g *ResilientGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.CallTimeout)
}

// upstream classifies a final error. NotFound passes through untouched.
func upstream(err error) error {
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err)
}

// countsAsFailure reports whether err says something about platform health.
// Lookups of unknown entities and rejected arguments do not.
func countsAsFailure(err error) bool {
	if errors.Is(err, apperr.ErrNotFound) {
		return false
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return false
	}
	return true
}

// isRetryable reports whether another attempt may succeed.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.ResourceExhausted,
		codes.Unavailable,
		codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

// backoff doubles base per attempt up to max.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d < 0 {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ Gateway = (*GRPCGateway)(nil)
var _ Gateway = (*ResilientGateway)(nil)
