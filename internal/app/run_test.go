package app

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/gateway/platform"
	"delivery-tracking/internal/realtime"
	"delivery-tracking/internal/service/notify"
	testlog "delivery-tracking/internal/testutil"
)

type nopSender struct{}

func (nopSender) NotifyDeliveryStatus(context.Context, platform.StatusNotice) error { return nil }

type runFixture struct {
	in     runIn
	rec    *testlog.Recorder
	cancel context.CancelFunc
	wsDone <-chan struct{}
	closed *atomic.Int32
}

func newRunFixture(t *testing.T, addr string) runFixture {
	t.Helper()

	rec := testlog.New()
	logger := rec.Logger()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := realtime.NewHub(logger, realtime.HubMetrics{})
	gw := realtime.NewGateway(hub, nil, nil, nil, nil, nil, realtime.Config{SendQueue: 1}, logger)
	client := gw.Open(nil)

	closed := &atomic.Int32{}
	cl := newCloser()
	cl.add("resource", func() error {
		closed.Add(1)
		return nil
	})

	return runFixture{
		in: runIn{
			Ctx:     ctx,
			Logger:  logger,
			Server:  &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second},
			Hub:     hub,
			Notices: notify.NewQueue(nopSender{}, 1, time.Second, nil, logger),
			Closer:  cl,
		},
		rec:    rec,
		cancel: cancel,
		wsDone: client.Done(),
		closed: closed,
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, "127.0.0.1:0")

	errCh := make(chan error, 1)
	go func() { errCh <- serve(f.in) }()

	require.Eventually(t, func() bool {
		return f.rec.Has("info", "status notifier started")
	}, 2*time.Second, 10*time.Millisecond)
	f.cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	select {
	case <-f.wsDone:
	default:
		t.Fatal("realtime connection was not closed")
	}
	require.Equal(t, int32(1), f.closed.Load())
	require.True(t, f.rec.Has("info", "realtime connections closed"))
}

func TestServe_ListenFailureStopsEverything(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, "not-an-address")

	err := serve(f.in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen")
	require.Equal(t, int32(1), f.closed.Load())
	require.True(t, f.rec.Has("info", "status notifier stopped"))
}

func TestServe_CloseErrorIsReported(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, "127.0.0.1:0")
	boom := errors.New("boom")
	f.in.Closer.add("broken", func() error { return boom })
	f.cancel()

	err := serve(f.in)
	require.ErrorIs(t, err, boom)
	require.True(t, f.rec.Has("error", "close failed"))
	require.Equal(t, int32(1), f.closed.Load())
}
