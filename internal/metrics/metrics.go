// Package metrics declares the service's Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "delivery_tracking"

// Metrics groups every collector the service updates.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	Connections    prometheus.Gauge
	Rooms          prometheus.Gauge
	SlowDropped    prometheus.Counter
	Broadcasts     *prometheus.CounterVec
	EventsRejected prometheus.Counter

	CouriersOnline    prometheus.Gauge
	CouriersAvailable prometheus.Gauge

	Transitions    *prometheus.CounterVec
	GatewayRetries prometheus.Counter
	NoticesDropped prometheus.Counter
}

// New creates the collectors and registers them with reg. Collectors that are
// already registered are reused, so New may be called more than once per
// registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Total number of HTTP requests rejected by rate limiting",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open realtime connections",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_rooms",
			Help:      "Delivery rooms with at least one member",
		}),
		SlowDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_slow_subscribers_dropped_total",
			Help:      "Connections closed because their send queue was full",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_broadcasts_total",
			Help:      "Events fanned out, by type",
		}, []string{"type"}),
		EventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_rate_limited_total",
			Help:      "Inbound realtime events rejected by the per-connection limiter",
		}),
		CouriersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "couriers_online",
			Help:      "Couriers holding a live connection",
		}),
		CouriersAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "couriers_available",
			Help:      "Couriers connected and available for work",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_transitions_total",
			Help:      "Delivery status transitions, by target status",
		}, []string{"status"}),
		GatewayRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_retries_total",
			Help:      "Retry attempts performed against the platform gateway",
		}),
		NoticesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_notices_dropped_total",
			Help:      "Order status notices dropped because the queue was full",
		}),
	}

	var err error
	m.HTTPRequests = register(reg, m.HTTPRequests, &err)
	m.HTTPDuration = register(reg, m.HTTPDuration, &err)
	m.RateLimited = register(reg, m.RateLimited, &err)
	m.Connections = register(reg, m.Connections, &err)
	m.Rooms = register(reg, m.Rooms, &err)
	m.SlowDropped = register(reg, m.SlowDropped, &err)
	m.Broadcasts = register(reg, m.Broadcasts, &err)
	m.EventsRejected = register(reg, m.EventsRejected, &err)
	m.CouriersOnline = register(reg, m.CouriersOnline, &err)
	m.CouriersAvailable = register(reg, m.CouriersAvailable, &err)
	m.Transitions = register(reg, m.Transitions, &err)
	m.GatewayRetries = register(reg, m.GatewayRetries, &err)
	m.NoticesDropped = register(reg, m.NoticesDropped, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register keeps the first error and returns the collector to use.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if reg == nil || *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}
