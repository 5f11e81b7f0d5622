package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/foodies-backoffice/internal/config"
	"github.com/ariefcatur/foodies-backoffice/internal/inventory"
	kafkax "github.com/ariefcatur/foodies-backoffice/internal/kafka"
	"github.com/ariefcatur/foodies-backoffice/internal/logger"
	"github.com/ariefcatur/foodies-backoffice/internal/orders"
	"github.com/ariefcatur/foodies-backoffice/internal/redisx"
	"github.com/ariefcatur/foodies-backoffice/internal/tracing"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	name := cfg.ServiceName + "-alerts"
	log := logger.New(cfg.LogLevel, name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, name, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatal().Err(err).Msg("redis ping")
	}

	svc := &inventory.Service{
		Store:     &inventory.RedisAlertStore{Redis: rdb, Service: inventory.DedupScope},
		Threshold: cfg.LowStockThreshold,
		Log:       log,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AlertsGroup, orders.TopicOrderPlaced, cfg.AlertsWorkers, log)

	log.Info().
		Str("group", cfg.AlertsGroup).
		Int("workers", cfg.AlertsWorkers).
		Int("threshold", cfg.LowStockThreshold).
		Msg("alerts consumer started")
	if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
		log.Error().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("alerts consumer stopped")
}
