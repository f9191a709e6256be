package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"delivery-tracking/internal/auth"
	"delivery-tracking/internal/http/handlers"
	obs "delivery-tracking/internal/http/middleware"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/http/router"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/metrics"
	"delivery-tracking/internal/transport/ws"
)

type routerIn struct {
	dig.In
	Logger     logx.Logger
	Base       *handlers.Handlers
	Deliveries *handlers.DeliveryHandler
	Couriers   *handlers.CourierHandler
	Realtime   *ws.Handler
	Verifier   *auth.Verifier
	RateLimit  *ratelimit.Middleware
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Logger:     in.Logger,
		Base:       in.Base,
		Deliveries: in.Deliveries,
		Couriers:   in.Couriers,
		Realtime:   in.Realtime,
		Verifier:   in.Verifier,
		RateLimit:  in.RateLimit,
		Metrics: obs.HTTPMetrics{
			Requests: in.Metrics.HTTPRequests,
			Duration: in.Metrics.HTTPDuration,
		},
		Gatherer: in.Registry,
		Timeout:  operationTimeout + 2*time.Second,
	})
}
