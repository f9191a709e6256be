package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/realtime"
	"delivery-tracking/internal/service/notify"
	"delivery-tracking/internal/transport/kafka"
)

const shutdownTimeout = 15 * time.Second

// MustRun runs the service until its context is canceled. Any other failure
// is fatal.
func MustRun(container *dig.Container) {
	if err := Run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

// Run starts the HTTP server, the status notifier and the order consumer
// and blocks until the container context is done or one of them fails.
func Run(container *dig.Container) error {
	return container.Invoke(serve)
}

type runIn struct {
	dig.In
	Ctx      context.Context
	Logger   logx.Logger
	Server   *http.Server
	Hub      *realtime.Hub
	Notices  *notify.Queue
	Consumer *kafka.Consumer
	Closer   *closer
}

func serve(in runIn) error {
	g, ctx := errgroup.WithContext(in.Ctx)

	g.Go(func() error {
		in.Logger.Info("delivery-tracking listening", logx.String("addr", in.Server.Addr))
		if err := in.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return in.Notices.Run(ctx)
	})
	g.Go(func() error {
		return in.Consumer.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		in.Logger.Info("shutting down delivery-tracking")
		gracefulShutdown(in.Server, in.Logger, shutdownTimeout)
		// hijacked connections are not tracked by the server
		n := in.Hub.CloseAll()
		in.Logger.Info("realtime connections closed", logx.Int("count", n))
		return nil
	})

	err := g.Wait()
	if cerr := in.Closer.closeAll(in.Logger); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Err(err))
	}
}
