// Package config loads service settings from .env, the environment and
// command-line flags, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config stores all service settings.
type Config struct {
	Port          int
	LogLevel      string
	StorageDriver string

	DB        DB
	Redis     Redis
	Kafka     Kafka
	Platform  Platform
	Breaker   Breaker
	Auth      Auth
	WS        WS
	Match     Match
	RateLimit RateLimit
}

// DB is the Postgres connection.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns a pgx connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Redis backs the geo index. An empty address selects the in-memory index.
type Redis struct {
	Addr string
}

// Kafka is the order events source. No brokers disables the consumer.
type Kafka struct {
	Brokers     []string
	GroupID     string
	OrdersTopic string
}

// Platform is the gRPC directory and order service.
type Platform struct {
	Addr        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// Breaker configures the circuit breaker around platform calls.
type Breaker struct {
	Failures    uint32
	OpenTimeout time.Duration
}

// Auth configures bearer token verification.
type Auth struct {
	JWTSecret        string
	HandshakeTimeout time.Duration
}

// WS tunes WebSocket connections.
type WS struct {
	SendQueue       int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	InboundRate     float64
	InboundBurst    int
	AllowedOrigins  []string
}

// Match holds candidate search defaults.
type Match struct {
	RadiusMeters float64
	Limit        int
}

// RateLimit configures the per-caller REST limiter.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Load reads configuration in order: .env (if present), environment, flags.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(".env")
	return Parse(os.Args[1:])
}

// Parse builds the configuration from the environment and args.
func Parse(args []string) (*Config, error) {
	r := &reader{}
	cfg := &Config{
		Port:          r.integer("PORT", defaultPort),
		LogLevel:      r.str("LOG_LEVEL", defaultLogLevel),
		StorageDriver: strings.ToLower(r.str("STORAGE_DRIVER", StoragePostgres)),
		DB: DB{
			Host: r.str("POSTGRES_HOST", defaultDB.Host),
			Port: r.str("POSTGRES_PORT", defaultDB.Port),
			User: r.str("POSTGRES_USER", defaultDB.User),
			Pass: r.str("POSTGRES_PASSWORD", defaultDB.Pass),
			Name: r.str("POSTGRES_DB", defaultDB.Name),
		},
		Redis: Redis{Addr: r.str("REDIS_ADDR", "")},
		Kafka: Kafka{
			Brokers:     r.list("KAFKA_BROKERS"),
			GroupID:     r.str("KAFKA_GROUP_ID", defaultKafka.GroupID),
			OrdersTopic: r.str("KAFKA_ORDERS_TOPIC", defaultKafka.OrdersTopic),
		},
		Platform: Platform{
			Addr:        r.str("PLATFORM_ADDR", ""),
			MaxAttempts: r.integer("PLATFORM_MAX_ATTEMPTS", defaultPlatform.MaxAttempts),
			BaseDelay:   r.dur("PLATFORM_BASE_DELAY", defaultPlatform.BaseDelay),
			MaxDelay:    r.dur("PLATFORM_MAX_DELAY", defaultPlatform.MaxDelay),
			Timeout:     r.dur("PLATFORM_TIMEOUT", defaultPlatform.Timeout),
		},
		Breaker: Breaker{
			Failures:    uint32(r.integer("BREAKER_FAILURES", int(defaultBreaker.Failures))),
			OpenTimeout: r.dur("BREAKER_OPEN_TIMEOUT", defaultBreaker.OpenTimeout),
		},
		Auth: Auth{
			JWTSecret:        r.str("AUTH_JWT_SECRET", ""),
			HandshakeTimeout: r.dur("AUTH_HANDSHAKE_TIMEOUT", defaultAuth.HandshakeTimeout),
		},
		WS: WS{
			SendQueue:       r.integer("WS_SEND_QUEUE", defaultWS.SendQueue),
			PingInterval:    r.dur("WS_PING_INTERVAL", defaultWS.PingInterval),
			WriteTimeout:    r.dur("WS_WRITE_TIMEOUT", defaultWS.WriteTimeout),
			MaxMessageBytes: int64(r.integer("WS_MAX_MESSAGE_BYTES", int(defaultWS.MaxMessageBytes))),
			InboundRate:     r.number("WS_INBOUND_RATE", defaultWS.InboundRate),
			InboundBurst:    r.integer("WS_INBOUND_BURST", defaultWS.InboundBurst),
			AllowedOrigins:  r.list("WS_ALLOWED_ORIGINS"),
		},
		Match: Match{
			RadiusMeters: r.number("MATCH_RADIUS_METERS", defaultMatch.RadiusMeters),
			Limit:        r.integer("MATCH_LIMIT", defaultMatch.Limit),
		},
		RateLimit: RateLimit{
			Enabled:    r.boolean("RATE_LIMIT_ENABLED", defaultRateLimit.Enabled),
			Rate:       r.number("RATE_LIMIT_RATE", defaultRateLimit.Rate),
			Burst:      r.integer("RATE_LIMIT_BURST", defaultRateLimit.Burst),
			TTL:        r.dur("RATE_LIMIT_TTL", defaultRateLimit.TTL),
			MaxBuckets: r.integer("RATE_LIMIT_MAX_BUCKETS", defaultRateLimit.MaxBuckets),
		},
	}
	if err := r.err(); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("delivery-tracking", pflag.ContinueOnError)
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "delivery storage: postgres or memory")
	fs.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "redis address for the geo index; empty keeps it in memory")
	fs.StringVar(&cfg.Platform.Addr, "platform-addr", cfg.Platform.Addr, "platform gRPC address")
	fs.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "kafka brokers; empty disables the order consumer")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	switch c.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if c.StorageDriver == StoragePostgres {
		if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT %q", c.DB.Port))
		}
	}
	if strings.TrimSpace(c.Platform.Addr) == "" {
		errs = append(errs, errors.New("PLATFORM_ADDR is required"))
	}
	if c.Platform.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("PLATFORM_MAX_ATTEMPTS must be positive, got %d", c.Platform.MaxAttempts))
	}
	if c.Platform.BaseDelay > c.Platform.MaxDelay {
		errs = append(errs, fmt.Errorf("PLATFORM_BASE_DELAY %s exceeds PLATFORM_MAX_DELAY %s", c.Platform.BaseDelay, c.Platform.MaxDelay))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("AUTH_HANDSHAKE_TIMEOUT must be positive"))
	}
	if c.WS.SendQueue <= 0 {
		errs = append(errs, fmt.Errorf("WS_SEND_QUEUE must be positive, got %d", c.WS.SendQueue))
	}
	if c.WS.InboundRate <= 0 || c.WS.InboundBurst <= 0 {
		errs = append(errs, errors.New("WS_INBOUND_RATE and WS_INBOUND_BURST must be positive"))
	}
	if c.Match.RadiusMeters <= 0 || c.Match.Limit <= 0 {
		errs = append(errs, errors.New("MATCH_RADIUS_METERS and MATCH_LIMIT must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RATE and RATE_LIMIT_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// reader collects parse errors so one run reports all bad variables.
type reader struct {
	errs []error
}

func (r *reader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(r.errs...))
}

func (r *reader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) number(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (r *reader) dur(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
