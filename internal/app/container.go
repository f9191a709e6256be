package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"delivery-tracking/internal/auth"
	"delivery-tracking/internal/config"
	"delivery-tracking/internal/gateway/platform"
	"delivery-tracking/internal/geoindex"
	"delivery-tracking/internal/http/handlers"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/metrics"
	"delivery-tracking/internal/presence"
	"delivery-tracking/internal/realtime"
	"delivery-tracking/internal/service/courier"
	"delivery-tracking/internal/service/delivery"
	"delivery-tracking/internal/service/matching"
	"delivery-tracking/internal/service/notify"
	"delivery-tracking/internal/service/orders"
	"delivery-tracking/internal/transport/kafka"
	"delivery-tracking/internal/transport/ws"
)

const operationTimeout = 3 * time.Second

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	loadConfig func() (*config.Config, error)
	dbConnect  dbConnectFunc
	logFatalf  func(string, ...interface{})
}

// NewContainerBuilder returns a builder wired for production.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		loadConfig: config.Load,
		dbConnect:  connectDbWithRetry,
		logFatalf:  log.Fatalf,
	}
}

// WithConfig replaces configuration loading with cfg.
func (b *ContainerBuilder) WithConfig(cfg *config.Config) *ContainerBuilder {
	if cfg != nil {
		b.loadConfig = func() (*config.Config, error) { return cfg, nil }
	}
	return b
}

// WithDBConnect sets the database connection function.
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the function called when the container cannot be built.
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStorage(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerRealtime(container); err != nil {
		return nil, fmt.Errorf("realtime: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if err := registerWorkers(container); err != nil {
		return nil, fmt.Errorf("workers: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds the production container.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context, load func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		load,
		NewLogger,
		newCloser,
		newHealthChecks,
		newRegistry,
		func(reg *prometheus.Registry) (*metrics.Metrics, error) {
			return metrics.New(reg)
		},
	)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func registerStorage(container *dig.Container, connect dbConnectFunc) error {
	providerStore := func(ctx context.Context, cfg *config.Config, logger logx.Logger, cl *closer, hc *healthChecks) (deliveryStore, error) {
		return openStore(ctx, cfg, logger, connect, cl, hc)
	}
	return provideAll(container,
		providerStore,
		newGeoIndex,
	)
}

func newGeoIndex(ctx context.Context, cfg *config.Config, logger logx.Logger, cl *closer, hc *healthChecks) (geoindex.Index, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("geo index kept in memory")
		return geoindex.NewMemoryIndex(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	pingCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	cl.add("redis", client.Close)
	hc.add("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	logger.Info("geo index on redis", logx.String("addr", cfg.Redis.Addr))
	return geoindex.NewRedisIndex(client), nil
}

func newPlatformGateway(cfg *config.Config, logger logx.Logger, m *metrics.Metrics, cl *closer) (*platform.ResilientGateway, error) {
	conn, err := platform.Dial(cfg.Platform.Addr)
	if err != nil {
		return nil, err
	}
	cl.add("platform", conn.Close)

	return platform.NewResilientGateway(platform.NewGRPCGateway(conn), logger, m.GatewayRetries, platform.RetryConfig{
		MaxAttempts:        cfg.Platform.MaxAttempts,
		BaseDelay:          cfg.Platform.BaseDelay,
		MaxDelay:           cfg.Platform.MaxDelay,
		CallTimeout:        cfg.Platform.Timeout,
		BreakerFailures:    cfg.Breaker.Failures,
		BreakerOpenTimeout: cfg.Breaker.OpenTimeout,
	}), nil
}

// noticeTimeout bounds one notice including every retry of it.
func noticeTimeout(p config.Platform) time.Duration {
	attempts := time.Duration(p.MaxAttempts)
	return attempts*p.Timeout + (attempts-1)*p.MaxDelay
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		newPlatformGateway,
		func(cfg *config.Config, gw *platform.ResilientGateway, m *metrics.Metrics, logger logx.Logger) *notify.Queue {
			return notify.NewQueue(gw, 0, noticeTimeout(cfg.Platform), m.NoticesDropped, logger)
		},
		func(logger logx.Logger, m *metrics.Metrics) *realtime.Hub {
			return realtime.NewHub(logger, realtime.HubMetrics{
				Connections: m.Connections,
				Rooms:       m.Rooms,
				Dropped:     m.SlowDropped,
				Broadcasts:  m.Broadcasts,
			})
		},
		func(index geoindex.Index, hub *realtime.Hub, store deliveryStore, logger logx.Logger, m *metrics.Metrics) *presence.Manager {
			return presence.NewManager(index, hub, logger, presence.Gauges{
				Online:    m.CouriersOnline,
				Available: m.CouriersAvailable,
			}, presence.WithEngagement(store))
		},
		func(
			store deliveryStore,
			gw *platform.ResilientGateway,
			couriers *presence.Manager,
			hub *realtime.Hub,
			notices *notify.Queue,
			m *metrics.Metrics,
			logger logx.Logger,
		) *delivery.Service {
			return delivery.NewService(store, gw, couriers, hub, notices, m.Transitions, operationTimeout, logger)
		},
		func(cfg *config.Config, svc *delivery.Service, index geoindex.Index, couriers *presence.Manager, logger logx.Logger) *matching.Service {
			return matching.NewService(svc, index, couriers, matching.Config{
				RadiusMeters: cfg.Match.RadiusMeters,
				Limit:        cfg.Match.Limit,
				Timeout:      operationTimeout,
			}, logger)
		},
		func(cfg *config.Config, gw *platform.ResilientGateway, couriers *presence.Manager) *courier.Service {
			return courier.NewService(gw, couriers, noticeTimeout(cfg.Platform))
		},
	)
}

func registerRealtime(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config) (*auth.Verifier, error) {
			return auth.NewVerifier(cfg.Auth.JWTSecret)
		},
		func(
			cfg *config.Config,
			hub *realtime.Hub,
			svc *delivery.Service,
			couriers *presence.Manager,
			verifier *auth.Verifier,
			clock ratelimit.Clock,
			m *metrics.Metrics,
			logger logx.Logger,
		) *realtime.Gateway {
			return realtime.NewGateway(hub, svc, couriers, verifier, newInboundLimiter(cfg, clock), m.EventsRejected,
				realtime.Config{SendQueue: cfg.WS.SendQueue, EventTimeout: operationTimeout}, logger)
		},
		func(cfg *config.Config, gw *realtime.Gateway, logger logx.Logger) *ws.Handler {
			return ws.NewHandler(gw, ws.Config{
				HandshakeTimeout: cfg.Auth.HandshakeTimeout,
				PingInterval:     cfg.WS.PingInterval,
				WriteTimeout:     cfg.WS.WriteTimeout,
				MaxMessageBytes:  cfg.WS.MaxMessageBytes,
				AllowedOrigins:   cfg.WS.AllowedOrigins,
			}, logger, handlers.ErrorWriter(logger))
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		// no read or write deadline: both would carry over to hijacked
		// WebSocket connections; the API routes have their own timeout
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		func(logger logx.Logger, hc *healthChecks) *handlers.Handlers {
			return handlers.New(logger, hc.list)
		},
		func(logger logx.Logger, svc *delivery.Service, candidates *matching.Service) *handlers.DeliveryHandler {
			return handlers.NewDeliveryHandler(logger, svc, candidates)
		},
		func(logger logx.Logger, svc *courier.Service) *handlers.CourierHandler {
			return handlers.NewCourierHandler(logger, svc)
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		newRouter,
		serverProvider,
	)
}

func registerWorkers(container *dig.Container) error {
	return provideAll(container,
		func(svc *delivery.Service, logger logx.Logger) *orders.Processor {
			return orders.NewProcessor(svc, logger)
		},
		newOrdersConsumer,
	)
}

func newOrdersConsumer(cfg *config.Config, logger logx.Logger, p *orders.Processor, cl *closer) (*kafka.Consumer, error) {
	c, err := kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrdersTopic, ordersHandler(p))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if c == nil {
		logger.Info("kafka not configured, order consumer disabled")
		return nil, nil
	}
	cl.add("kafka", c.Close)
	return c, nil
}
