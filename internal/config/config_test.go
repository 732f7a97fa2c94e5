package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ProviderMailTester, cfg.VerifierProvider)
	assert.Equal(t, "first", cfg.ResolverStrategy)
	assert.Equal(t, 10*time.Second, cfg.VerifierTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Empty(t, cfg.HTTPAPIKeys)
	assert.False(t, cfg.KafkaEnabled)
	assert.Zero(t, cfg.VerifierRateLimit)
	assert.Equal(t, 5, cfg.VerifierRateBurst)
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	t.Setenv("MAILTESTER_API_KEY", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.MailTesterAPIKey)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("MAILTESTER_API_KEY", "mt-key")
	t.Setenv("RESOLVER_STRATEGY", "ranked")
	t.Setenv("RESOLVER_WORKERS", "4")
	t.Setenv("HTTP_API_KEYS", "a,b")
	t.Setenv("VERIFIER_PROVIDER", "mock")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "mt-key", cfg.MailTesterAPIKey)
	assert.Equal(t, "ranked", cfg.ResolverStrategy)
	assert.Equal(t, 4, cfg.ResolverWorkers)
	assert.Equal(t, []string{"a", "b"}, cfg.HTTPAPIKeys)
	assert.Equal(t, ProviderMock, cfg.VerifierProvider)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("VERIFIER_PROVIDER", "smtp")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERIFIER_PROVIDER")
}

func TestLoad_InvalidStrategy(t *testing.T) {
	t.Setenv("RESOLVER_STRATEGY", "fastest")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOLVER_STRATEGY")
}

func TestLoad_WorkerRequiresKafka(t *testing.T) {
	t.Setenv("WORKER_ENABLED", "true")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_ENABLED requires KAFKA_ENABLED")
}

func TestLoad_NegativeRateLimit(t *testing.T) {
	t.Setenv("VERIFIER_RATE_LIMIT", "-1")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERIFIER_RATE_LIMIT")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestConfig_ConnectionSettings(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: 5433, PostgresUser: "u", PostgresPass: "p",
		PostgresDB: "mf", PostgresSSL: "require", DBMaxConns: 7, DBMinConns: 1,
		RedisHost: "cache", RedisPort: 6380, RedisDB: 2,
	}

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, int32(7), pg.MaxConns)
	assert.Equal(t, "postgres://u:p@db:5433/mf?sslmode=require", pg.DSN())

	rc := cfg.Redis()
	assert.Equal(t, "cache:6380", rc.Addr())
	assert.Equal(t, 2, rc.DB)
}
