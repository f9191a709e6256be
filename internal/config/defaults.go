package config

import "time"

const (
	defaultPort     = 8080
	defaultLogLevel = "info"
)

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "delivery",
	Pass: "delivery",
	Name: "delivery_tracking",
}

var defaultKafka = Kafka{
	GroupID:     "delivery-tracking",
	OrdersTopic: "orders",
}

var defaultPlatform = Platform{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
	Timeout:     2 * time.Second,
}

var defaultBreaker = Breaker{
	Failures:    5,
	OpenTimeout: 30 * time.Second,
}

var defaultAuth = Auth{
	HandshakeTimeout: 5 * time.Second,
}

var defaultWS = WS{
	SendQueue:       64,
	PingInterval:    25 * time.Second,
	WriteTimeout:    10 * time.Second,
	MaxMessageBytes: 64 << 10,
	InboundRate:     20,
	InboundBurst:    40,
}

var defaultMatch = Match{
	RadiusMeters: 5000,
	Limit:        10,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       10,
	Burst:      20,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultPlatform returns the default platform retry settings.
func DefaultPlatform() Platform {
	return defaultPlatform
}
