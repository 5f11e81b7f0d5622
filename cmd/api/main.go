package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/foodies-backoffice/internal/auth"
	"github.com/ariefcatur/foodies-backoffice/internal/config"
	"github.com/ariefcatur/foodies-backoffice/internal/httpx"
	"github.com/ariefcatur/foodies-backoffice/internal/inventory"
	kafkax "github.com/ariefcatur/foodies-backoffice/internal/kafka"
	"github.com/ariefcatur/foodies-backoffice/internal/logger"
	"github.com/ariefcatur/foodies-backoffice/internal/orders"
	"github.com/ariefcatur/foodies-backoffice/internal/postgres"
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
	log := logger.New(cfg.LogLevel, cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatal().Err(err).Msg("redis ping")
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	prod.Start()

	svc := orders.NewService(&orders.Repo{DB: db},
		orders.WithCustomerMembership(cfg.RequireCustomerMembership),
	)
	authn := auth.Middleware(&auth.SessionResolver{
		Sessions:  &auth.SessionStore{Redis: rdb, TTL: cfg.SessionTTL},
		Employees: &auth.EmployeeRepo{DB: db},
	}, log)

	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Orders:   svc,
		Producer: prod,
		Idem:     &httpx.RedisIdempotency{Redis: rdb, TTL: cfg.IdempotencyTTL},
		Service:  cfg.ServiceName,
		Timeout:  cfg.RequestTimeout,
		Log:      log,
	}
	oh.Register(router, authn)
	ih := &httpx.InventoryHandler{
		Alerts: &inventory.Service{
			Store:     &inventory.RedisAlertStore{Redis: rdb, Service: inventory.DedupScope},
			Threshold: cfg.LowStockThreshold,
			Log:       log,
		},
		Log: log,
	}
	ih.Register(router, authn)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // stop accepting, flush the inbox
	prod.WaitClosed() // writer closed
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
}
