package config

import (
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/aadarsh2904/GoQunat-Project/pkg/config"
)

// Feed modes for the built-in venue adapter.
const (
	FeedModeNone = "none"
	FeedModeREST = "rest"
	FeedModeWS   = "ws"
)

// Config holds the runtime configuration for a cost-estimator instance.
// Every external dependency is optional: an empty URL/address disables it.
type Config struct {
	ServiceName      string // e.g. "cost-estimator"
	Env              string // e.g. "dev", "uat", "prod"
	LogLevel         string // "debug", "info", etc.
	Port             int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int
	CORSOrigins      []string

	// Snapshots older than this are rejected as unavailable. 0 disables.
	BookMaxAge time.Duration

	// Impact model
	ImpactModel       string // "sqrt" | "powerlaw"
	ImpactCoefficient float64
	ImpactExponent    float64
	PowerLawEta       float64
	PowerLawAlpha     float64
	ImpactADV         map[string]float64 // "VENUE:SYMBOL" -> quote volume per day

	// Maker/taker logistic coefficients
	MakerIntercept    float64
	MakerSpreadCoef   float64
	MakerVolCoef      float64
	MakerQueueCoef    float64
	MakerDistanceCoef float64

	// Fee schedule
	FeeSchedulePath    string
	FeeTable           string
	FeeRefreshInterval time.Duration

	// Postgres (fee tiers)
	DatabaseURL         string
	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration

	// Redis (snapshot mirror)
	RedisAddr     string // e.g. localhost:6379
	RedisDB       int
	RedisPass     string
	BookMirrorTTL time.Duration

	// NATS
	NATSURL          string // e.g. nats://localhost:4222
	BookSubject      string // inbound snapshots
	EventsPrefix     string // outbound subject prefix
	EventsStream     string
	PublishEstimates bool

	// RabbitMQ
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Venue feed
	FeedMode         string
	FeedVenue        string
	FeedSymbols      []string
	FeedBaseURL      string
	FeedWSURL        string
	FeedDepth        int
	FeedPollInterval time.Duration
	FeedRPS          float64
	FeedBurst        int

	// AWS Secrets Manager (per-venue feed endpoints)
	AWSSecretsEnabled bool
	AWSRegion         string
	CacheTTL          time.Duration // TTL for secret cache
	CleanupFreq       time.Duration // frequency for cache cleanup goroutine
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:      pkgconfig.GetEnv("SERVICE_NAME", "cost-estimator"),
		Env:              pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:         pkgconfig.GetEnv("LOG_LEVEL", "info"),
		Port:             pkgconfig.GetEnvInt("PORT", 8000),
		HTTPReadTimeout:  pkgconfig.GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: pkgconfig.GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:  pkgconfig.GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    pkgconfig.GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),
		CORSOrigins: pkgconfig.GetEnvList("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),

		BookMaxAge: pkgconfig.GetEnvDuration("BOOK_MAX_AGE", 60*time.Second),

		ImpactModel:       pkgconfig.GetEnv("IMPACT_MODEL", "sqrt"),
		ImpactCoefficient: pkgconfig.GetEnvFloat("IMPACT_COEFFICIENT", 1.0),
		ImpactExponent:    pkgconfig.GetEnvFloat("IMPACT_EXPONENT", 0.5),
		PowerLawEta:       pkgconfig.GetEnvFloat("POWERLAW_ETA", 1e-4),
		PowerLawAlpha:     pkgconfig.GetEnvFloat("POWERLAW_ALPHA", 0.6),
		ImpactADV:         pkgconfig.GetEnvFloatMap("IMPACT_ADV"),

		MakerIntercept:    pkgconfig.GetEnvFloat("MAKER_INTERCEPT", 0.8),
		MakerSpreadCoef:   pkgconfig.GetEnvFloat("MAKER_SPREAD_COEF", 0.4),
		MakerVolCoef:      pkgconfig.GetEnvFloat("MAKER_VOL_COEF", 20),
		MakerQueueCoef:    pkgconfig.GetEnvFloat("MAKER_QUEUE_COEF", 1.5),
		MakerDistanceCoef: pkgconfig.GetEnvFloat("MAKER_DISTANCE_COEF", 0.1),

		FeeSchedulePath:    pkgconfig.GetEnv("FEE_SCHEDULE_PATH", ""),
		FeeTable:           pkgconfig.GetEnv("FEE_TABLE", "reference.fee_tiers"),
		FeeRefreshInterval: pkgconfig.GetEnvDuration("FEE_REFRESH_INTERVAL", 5*time.Minute),

		DatabaseURL:         pkgconfig.GetEnv("DATABASE_URL", ""),
		PGMaxConns:          pkgconfig.GetEnvInt("PG_MAX_CONNS", 5),
		PGMinConns:          pkgconfig.GetEnvInt("PG_MIN_CONNS", 1),
		PGMaxConnLifetime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: pkgconfig.GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),

		RedisAddr:     pkgconfig.GetEnv("REDIS_ADDR", ""),
		RedisDB:       pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass:     pkgconfig.GetEnv("REDIS_PASS", ""),
		BookMirrorTTL: pkgconfig.GetEnvDuration("BOOK_MIRROR_TTL", 10*time.Minute),

		NATSURL:          pkgconfig.GetEnv("NATS_URL", ""),
		BookSubject:      pkgconfig.GetEnv("BOOK_SUBJECT", "md.orderbook.v1.>"),
		EventsPrefix:     pkgconfig.GetEnv("EVENTS_PREFIX", "evt"),
		EventsStream:     pkgconfig.GetEnv("EVENTS_STREAM", "COST_EVENTS"),
		PublishEstimates: pkgconfig.GetEnvBool("PUBLISH_ESTIMATES", false),

		AMQPURL:      pkgconfig.GetEnv("AMQP_URL", ""),
		AMQPExchange: pkgconfig.GetEnv("AMQP_EXCHANGE", "md.orderbook"),
		AMQPQueue:    pkgconfig.GetEnv("AMQP_QUEUE", "cost-estimator.books"),

		FeedMode:         pkgconfig.GetEnv("FEED_MODE", FeedModeNone),
		FeedVenue:        pkgconfig.GetEnv("FEED_VENUE", "OKX"),
		FeedSymbols:      pkgconfig.GetEnvList("FEED_SYMBOLS", []string{"BTC-USDT"}),
		FeedBaseURL:      pkgconfig.GetEnv("FEED_BASE_URL", "https://www.okx.com"),
		FeedWSURL:        pkgconfig.GetEnv("FEED_WS_URL", "wss://ws.okx.com:8443/ws/v5/public"),
		FeedDepth:        pkgconfig.GetEnvInt("FEED_DEPTH", 400),
		FeedPollInterval: pkgconfig.GetEnvDuration("FEED_POLL_INTERVAL", 2*time.Second),
		FeedRPS:          pkgconfig.GetEnvFloat("FEED_RPS", 10),
		FeedBurst:        pkgconfig.GetEnvInt("FEED_BURST", 20),

		AWSSecretsEnabled: pkgconfig.GetEnvBool("AWS_SECRETS_ENABLED", false),
		AWSRegion:         pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		CacheTTL:          pkgconfig.GetEnvDuration("CACHE_TTL", 1*time.Hour),
		CleanupFreq:       pkgconfig.GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),
	}

	return cfg
}
