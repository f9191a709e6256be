// Package router assembles the HTTP surface.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delivery-tracking/internal/auth"
	"delivery-tracking/internal/http/handlers"
	obs "delivery-tracking/internal/http/middleware"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/logx"
)

// Deps are the router's collaborators. RateLimit and Gatherer may be nil.
type Deps struct {
	Logger     logx.Logger
	Base       *handlers.Handlers
	Deliveries *handlers.DeliveryHandler
	Couriers   *handlers.CourierHandler
	Realtime   http.Handler
	Verifier   auth.TokenVerifier
	RateLimit  *ratelimit.Middleware
	Metrics    obs.HTTPMetrics
	Gatherer   prometheus.Gatherer
	Timeout    time.Duration
}

// New constructs the chi router. The WebSocket route sits outside the request
// timeout because its handler runs for the life of the connection.
func New(d Deps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Second
	}
	onAuthError := handlers.ErrorWriter(d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.Observability(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/ping", d.Base.Ping)
	r.Get("/healthcheck", d.Base.Healthcheck)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Realtime != nil {
		r.Method(http.MethodGet, "/ws", d.Realtime)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(d.Timeout))
		api.Use(auth.Middleware(d.Verifier, onAuthError))
		if d.RateLimit != nil {
			api.Use(d.RateLimit.Handler())
		}

		api.Route("/deliveries", func(dr chi.Router) {
			dr.Post("/", d.Deliveries.Create)
			dr.Get("/", d.Deliveries.List)
			dr.Get("/nearby", d.Deliveries.Nearby)
			dr.Route("/{id}", func(one chi.Router) {
				one.Get("/", d.Deliveries.Get)
				one.Post("/assign", d.Deliveries.Assign)
				one.Get("/candidates", d.Deliveries.Candidates)
				one.Get("/location", d.Deliveries.Location)
				one.Post("/status", d.Deliveries.Status)
			})
		})
		api.Get("/couriers/online", d.Couriers.Online)
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))
	return r
}
