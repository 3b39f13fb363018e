package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/config"
	"github.com/ariefcatur/go-retail-stock/internal/httpx"
	kafkax "github.com/ariefcatur/go-retail-stock/internal/kafka"
	"github.com/ariefcatur/go-retail-stock/internal/logging"
	"github.com/ariefcatur/go-retail-stock/internal/metrics"
	"github.com/ariefcatur/go-retail-stock/internal/orders"
	"github.com/ariefcatur/go-retail-stock/internal/postgres"
	"github.com/ariefcatur/go-retail-stock/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false, "stock-worker")
		boot.Fatal().Err(err).Msg("config")
	}
	service := cfg.ServiceName + "-worker"
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty, service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis (event dedup)
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisDB)
	defer rdb.Close()

	// Item transitions never touch stock, so the order service runs
	// without a reserver here.
	svc := orders.NewService(&orders.Repo{DB: db}, nil, log, m)
	handler := &orders.StatusEventHandler{Orders: svc, Redis: rdb, ServiceName: service, Log: log}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.Events.StatusEventsGroup, cfg.Events.StatusEventsTopic, cfg.Events.StatusWorkers, log)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpx.NewRouter(log, reg), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("group", cfg.Events.StatusEventsGroup).
			Str("topic", cfg.Events.StatusEventsTopic).
			Int("workers", cfg.Events.StatusWorkers).
			Msg("status consumer started")
		return cons.Start(gctx, handler.Handle)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker exited")
	}
	log.Info().Msg("worker stopped")
}
