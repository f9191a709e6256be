package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-tracking/internal/config"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/http/handlers"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/repository"
)

// deliveryStore is satisfied by both repository implementations.
type deliveryStore interface {
	Insert(ctx context.Context, d *domain.Delivery) error
	Get(ctx context.Context, id string) (*domain.Delivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)
	List(ctx context.Context) ([]domain.Delivery, error)
	ListPendingNear(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.Delivery, error)
	Update(ctx context.Context, id string, fn func(d *domain.Delivery) error) (*domain.Delivery, error)
	ActiveByCourier(ctx context.Context, courierID string) (*domain.Delivery, error)
}

type dbConnectFunc func(ctx context.Context, logger logx.Logger, dsn string, retries int, delay time.Duration) (*pgxpool.Pool, error)

var (
	newPool = repository.NewPool
	migrate = repository.Migrate
)

func connectDbWithRetry(ctx context.Context, logger logx.Logger, dsn string, retries int, delay time.Duration) (*pgxpool.Pool, error) {
	var lastErr error
	const attemptTimeout = 3 * time.Second
	for i := 1; i <= retries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		pool, err := newPool(attemptCtx, dsn)
		cancel()
		if err == nil {
			logger.Info("db connected", logx.Int("attempt", i))
			return pool, nil
		}
		lastErr = err
		logger.Warn("db connect failed",
			logx.Int("attempt", i),
			logx.Int("retries", retries),
			logx.Err(err),
		)
		if i < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", retries, lastErr)
}

func openStore(ctx context.Context, cfg *config.Config, logger logx.Logger, connect dbConnectFunc, cl *closer, hc *healthChecks) (deliveryStore, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("deliveries kept in memory; they are lost on restart")
		return repository.NewMemoryDeliveryRepo(), nil
	}

	pool, err := connect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	cl.add("postgres", func() error {
		pool.Close()
		return nil
	})
	hc.add("postgres", pool.Ping)
	return repository.NewDeliveryRepo(pool), nil
}

// healthChecks collects health checks for the dependencies opened at startup.
type healthChecks struct {
	mu   sync.Mutex
	deps []handlers.Dependency
}

func newHealthChecks() *healthChecks {
	return &healthChecks{}
}

func (h *healthChecks) add(name string, check func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deps = append(h.deps, handlers.Dependency{Name: name, Check: check})
}

func (h *healthChecks) list() []handlers.Dependency {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]handlers.Dependency(nil), h.deps...)
}

// closer releases resources in reverse order of acquisition.
type closer struct {
	mu  sync.Mutex
	fns []namedClose
}

type namedClose struct {
	name string
	fn   func() error
}

func newCloser() *closer {
	return &closer{}
}

func (c *closer) add(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, namedClose{name: name, fn: fn})
}

// closeAll runs every registered function once and joins their errors.
func (c *closer) closeAll(logger logx.Logger) error {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i].fn(); err != nil {
			logger.Error("close failed", logx.String("resource", fns[i].name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", fns[i].name, err))
		}
	}
	return errors.Join(errs...)
}
