package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/leadagent/mailfinder/internal/config"
	"github.com/leadagent/mailfinder/internal/event"
	handler "github.com/leadagent/mailfinder/internal/handler/http"
	"github.com/leadagent/mailfinder/internal/repository/postgres"
	redisrepo "github.com/leadagent/mailfinder/internal/repository/redis"
	"github.com/leadagent/mailfinder/internal/resolver"
	"github.com/leadagent/mailfinder/internal/service"
	"github.com/leadagent/mailfinder/internal/verifier"
	"github.com/leadagent/mailfinder/internal/verifier/mailtester"
	"github.com/leadagent/mailfinder/internal/verifier/mock"
	"github.com/leadagent/mailfinder/internal/worker"
	"github.com/leadagent/mailfinder/pkg/database"
	"github.com/leadagent/mailfinder/pkg/health"
	pkgkafka "github.com/leadagent/mailfinder/pkg/kafka"
	"github.com/leadagent/mailfinder/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "mailfinder"

// App wires together all dependencies and runs the mailfinder service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := prometheus.Register(database.NewPoolStatsCollector(pool, ServiceName)); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis for the lookup cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = redisClient
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Kafka is optional. Without it lookups are not announced and the
	// asynchronous endpoint answers 503.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = a.producer
	}

	// Build the dependency graph.
	provider := newProvider(ctx, cfg, logger)

	strategy, err := resolver.ParseStrategy(cfg.ResolverStrategy)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	res := resolver.New(provider, resolver.Config{
		APIKey:       apiKey(cfg),
		Workers:      cfg.ResolverWorkers,
		CheckTimeout: cfg.VerifierTimeout,
		Strategy:     strategy,
	}, logger)

	repo := postgres.NewLookupRepository(pool, database.QueryTracer{
		SlowThreshold: cfg.DBSlowQueryThreshold,
		Logger:        logger,
	})
	cache := redisrepo.NewLookupCache(redisClient, cfg.CacheTTL)
	eventProducer := event.NewProducer(publisher, logger)
	finderService := service.NewFinderService(res, repo, cache, eventProducer, logger)

	// Asynchronous lookup worker.
	if cfg.WorkerEnabled {
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = worker.NewConsumer(worker.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaConsumerGroup,
		}, worker.NewLookupRequestHandler(finderService, logger), a.dlq, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", cache.Ping)
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(finderService, healthHandler, handler.RouterConfig{
		ServiceName:       ServiceName,
		APIKeys:           cfg.HTTPAPIKeys,
		CORSOrigins:       cfg.CORSOrigins,
		RequestTimeout:    cfg.RequestTimeout,
		PprofEnabled:      cfg.PprofEnabled,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	writeTimeout := 15 * time.Second
	if cfg.RequestTimeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.RequestTimeout + 5*time.Second
	}
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newProvider builds the configured verification provider. A mailtester
// endpoint that does not answer at startup is only logged.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) verifier.Provider {
	if cfg.VerifierProvider == config.ProviderMock {
		logger.Warn("using mock verification provider", slog.Duration("latency", cfg.MockLatency))
		return mock.NewProvider(cfg.MockLatency, logger)
	}

	client := mailtester.New(mailtester.Config{
		TokenURL:   cfg.MailTesterTokenURL,
		CheckURL:   cfg.MailTesterCheckURL,
		Timeout:    cfg.VerifierTimeout,
		MaxRetries: cfg.VerifierMaxRetries,
		RateLimit:  cfg.VerifierRateLimit,
		RateBurst:  cfg.VerifierRateBurst,
	}, logger)

	if cfg.MailTesterAPIKey == "" {
		logger.Warn("MAILTESTER_API_KEY is not set, lookups will resolve as unconfigured")
	} else if err := client.Ping(ctx); err != nil {
		logger.Warn("verification provider unreachable at startup",
			slog.String("provider", client.Name()),
			slog.String("error", err.Error()),
		)
	}
	return client
}

// apiKey returns the key handed to the resolver. The mock provider accepts
// any non-empty key.
func apiKey(cfg *config.Config) string {
	if cfg.VerifierProvider == config.ProviderMock && cfg.MailTesterAPIKey == "" {
		return "mock"
	}
	return cfg.MailTesterAPIKey
}

// Run starts the HTTP server and the lookup worker, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the lookup request consumer.
	if a.consumer != nil {
		go func() {
			a.logger.Info("starting lookup worker", slog.String("topic", event.TopicLookupRequested))
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("lookup request consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer, DLQ and producer
// 4. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("lookup request consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if err = a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
