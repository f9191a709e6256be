package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	testlog "delivery-tracking/internal/testutil"
)

type fakeGateway struct {
	getOrderFn func(context.Context, string) (*Order, error)
	notifyFn   func(context.Context, StatusNotice) error
}

func (f *fakeGateway) GetOrder(ctx context.Context, id string) (*Order, error) {
	return f.getOrderFn(ctx, id)
}

func (f *fakeGateway) GetRestaurant(context.Context, string) (*Restaurant, error) {
	return &Restaurant{ID: "r"}, nil
}

func (f *fakeGateway) GetUser(context.Context, string) (*User, error) {
	return nil, status.Error(codes.NotFound, "nope")
}

func (f *fakeGateway) ListAvailableCouriers(context.Context, domain.Role) ([]User, error) {
	return nil, nil
}

func (f *fakeGateway) NotifyDeliveryStatus(ctx context.Context, n StatusNotice) error {
	return f.notifyFn(ctx, n)
}

type counterStub struct{ n int64 }

func (c *counterStub) Inc()         { atomic.AddInt64(&c.n, 1) }
func (c *counterStub) Count() int64 { return atomic.LoadInt64(&c.n) }

func TestResilientGateway_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var calls int32
	next := &fakeGateway{
		getOrderFn: func(context.Context, string) (*Order, error) {
			switch atomic.AddInt32(&calls, 1) {
			case 1, 2:
				return nil, status.Error(codes.Unavailable, "unavailable")
			default:
				return &Order{ID: "42"}, nil
			}
		},
	}
	ctr := &counterStub{}
	g := NewResilientGateway(next, rec.Logger(), ctr, RetryConfig{MaxAttempts: 5, BreakerFailures: 10})
	require.NotNil(t, g)

	got, err := g.GetOrder(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "42", got.ID)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.EqualValues(t, 2, ctr.Count())

	entries := rec.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "platform gateway retry", entries[0].Msg)
}

func TestResilientGateway_NoRetryOnNonRetryable(t *testing.T) {
	t.Parallel()

	var calls int32
	next := &fakeGateway{
		getOrderFn: func(context.Context, string) (*Order, error) {
			atomic.AddInt32(&calls, 1)
			return nil, status.Error(codes.InvalidArgument, "bad request")
		},
	}
	ctr := &counterStub{}
	g := NewResilientGateway(next, nil, ctr, RetryConfig{MaxAttempts: 5})

	_, err := g.GetOrder(context.Background(), "42")
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.EqualValues(t, 0, ctr.Count())
}

func TestResilientGateway_NotFoundPassesThrough(t *testing.T) {
	t.Parallel()

	next := &fakeGateway{
		getOrderFn: func(context.Context, string) (*Order, error) {
			return nil, apperr.ErrNotFound
		},
	}
	g := NewResilientGateway(next, nil, nil, RetryConfig{MaxAttempts: 3, BreakerFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := g.GetOrder(context.Background(), "missing")
		require.ErrorIs(t, err, apperr.ErrNotFound)
		require.NotErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	}
	require.Equal(t, gobreaker.StateClosed, g.BreakerState())
}

func TestResilientGateway_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls int32
	next := &fakeGateway{
		notifyFn: func(context.Context, StatusNotice) error {
			atomic.AddInt32(&calls, 1)
			return status.Error(codes.Internal, "boom")
		},
	}
	g := NewResilientGateway(next, nil, nil, RetryConfig{
		MaxAttempts:        1,
		BreakerFailures:    2,
		BreakerOpenTimeout: time.Hour,
	})

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, g.NotifyDeliveryStatus(context.Background(), StatusNotice{}), apperr.ErrUpstreamUnavailable)
	}
	require.Equal(t, gobreaker.StateOpen, g.BreakerState())

	err := g.NotifyDeliveryStatus(context.Background(), StatusNotice{})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls), "open breaker must not reach the platform")
}

func TestResilientGateway_CallTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	next := &fakeGateway{
		getOrderFn: func(ctx context.Context, _ string) (*Order, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &Order{ID: "1"}, nil
		},
	}
	g := NewResilientGateway(next, nil, nil, RetryConfig{MaxAttempts: 2, CallTimeout: 20 * time.Millisecond, BreakerFailures: 5})

	got, err := g.GetOrder(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "1", got.ID)
}

func TestResilientGateway_ContextCancelledStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	next := &fakeGateway{
		getOrderFn: func(context.Context, string) (*Order, error) {
			cancel()
			return nil, status.Error(codes.Unavailable, "down")
		},
	}
	g := NewResilientGateway(next, nil, nil, RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second})

	_, err := g.GetOrder(ctx, "1")
	require.True(t, errors.Is(err, apperr.ErrUpstreamUnavailable))
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	require.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 1))
	require.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, time.Second, 3))
	require.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 8))
}
