package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leadagent/mailfinder/internal/app"
	"github.com/leadagent/mailfinder/internal/config"
	"github.com/leadagent/mailfinder/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	keyConfigured := cfg.MailTesterAPIKey != ""
	log.Info("starting mailfinder service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("verifier", cfg.VerifierProvider),
		slog.String("resolver_strategy", cfg.ResolverStrategy),
		slog.Int("resolver_workers", cfg.ResolverWorkers),
		slog.Bool("api_key_configured", keyConfigured),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)
	if !keyConfigured && cfg.VerifierProvider == config.ProviderMailTester {
		log.Warn("MAILTESTER_API_KEY is not set; lookups will return not-found with a LinkedIn search fallback")
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("mailfinder service stopped")
}
