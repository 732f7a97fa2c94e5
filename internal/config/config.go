package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/leadagent/mailfinder/pkg/config"
	"github.com/leadagent/mailfinder/pkg/database"
)

// Verifier provider names.
const (
	ProviderMailTester = "mailtester"
	ProviderMock       = "mock"
)

// Config holds all configuration for the mailfinder service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"HTTP_PORT" envDefault:"8080"`
	HTTPAPIKeys    []string      `env:"HTTP_API_KEYS" envSeparator:","`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"mailfinder"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"mailfinder"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"mailfinder"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns           int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns           int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBSlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Kafka
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"mailfinder-workers"`
	WorkerEnabled      bool     `env:"WORKER_ENABLED" envDefault:"false"`

	// Verification provider. An empty API key is allowed: lookups then
	// resolve to "unconfigured" instead of failing at startup.
	VerifierProvider   string        `env:"VERIFIER_PROVIDER" envDefault:"mailtester"`
	MailTesterAPIKey   string        `env:"MAILTESTER_API_KEY"`
	MailTesterTokenURL string        `env:"MAILTESTER_TOKEN_URL" envDefault:"https://token.mailtester.ninja/token"`
	MailTesterCheckURL string        `env:"MAILTESTER_CHECK_URL" envDefault:"https://happy.mailtester.ninja/ninja"`
	VerifierTimeout    time.Duration `env:"VERIFIER_TIMEOUT" envDefault:"10s"`
	VerifierMaxRetries int           `env:"VERIFIER_MAX_RETRIES" envDefault:"0"`
	VerifierRateLimit  float64       `env:"VERIFIER_RATE_LIMIT" envDefault:"0"`
	VerifierRateBurst  int           `env:"VERIFIER_RATE_BURST" envDefault:"5"`
	MockLatency        time.Duration `env:"VERIFIER_MOCK_LATENCY" envDefault:"50ms"`

	// Resolver
	ResolverWorkers  int    `env:"RESOLVER_WORKERS" envDefault:"0"`
	ResolverStrategy string `env:"RESOLVER_STRATEGY" envDefault:"first"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load mailfinder config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.WorkerEnabled && !c.KafkaEnabled {
		return fmt.Errorf("WORKER_ENABLED requires KAFKA_ENABLED")
	}
	switch c.VerifierProvider {
	case ProviderMailTester, ProviderMock:
	default:
		return fmt.Errorf("VERIFIER_PROVIDER must be %q or %q, got %q", ProviderMailTester, ProviderMock, c.VerifierProvider)
	}
	switch c.ResolverStrategy {
	case "first", "ranked":
	default:
		return fmt.Errorf("RESOLVER_STRATEGY must be \"first\" or \"ranked\", got %q", c.ResolverStrategy)
	}
	if c.VerifierTimeout <= 0 {
		return fmt.Errorf("VERIFIER_TIMEOUT must be positive")
	}
	if c.VerifierMaxRetries < 0 {
		return fmt.Errorf("VERIFIER_MAX_RETRIES must not be negative")
	}
	if c.VerifierRateLimit < 0 {
		return fmt.Errorf("VERIFIER_RATE_LIMIT must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the connection settings for the lookup history database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.DBMaxConns
	pg.MinConns = c.DBMinConns
	return pg
}

// Redis returns the connection settings for the lookup cache.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}
