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
	"github.com/ariefcatur/go-retail-stock/internal/inventory"
	kafkax "github.com/ariefcatur/go-retail-stock/internal/kafka"
	"github.com/ariefcatur/go-retail-stock/internal/logging"
	"github.com/ariefcatur/go-retail-stock/internal/metrics"
	"github.com/ariefcatur/go-retail-stock/internal/orders"
	"github.com/ariefcatur/go-retail-stock/internal/postgres"
	"github.com/ariefcatur/go-retail-stock/internal/redisx"
	"github.com/ariefcatur/go-retail-stock/internal/stocklock"
	"github.com/go-zookeeper/zk"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false, "stock-api")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	// Lock backend
	lockStore, closeLocks, err := newLockStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Lock.Backend).Msg("lock store")
	}
	defer closeLocks()
	lockOpts := stocklock.DefaultOptions()
	lockOpts.TTL, lockOpts.Wait, lockOpts.RetryInterval = cfg.Lock.TTL, cfg.Lock.Wait, cfg.Lock.RetryInterval
	locker := stocklock.New(lockStore, lockOpts, log, m)

	// Kafka producer for inventory movements
	prodCtx, stopProducer := context.WithCancel(context.Background())
	defer stopProducer()
	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.Events.MovementsTopic, 1024, log)
	prod.Start(prodCtx)

	stock := inventory.NewService(locker, &inventory.PostgresStore{DB: db},
		&inventory.KafkaPublisher{Producer: prod, ServiceName: cfg.ServiceName}, log, m)
	orderSvc := orders.NewService(&orders.Repo{DB: db}, stock, log, m)

	router := httpx.NewRouter(log, reg,
		&httpx.StockHandler{Stock: stock, Log: log},
		&httpx.OrdersHandler{Orders: orderSvc, Log: log},
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("lock_backend", cfg.Lock.Backend).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
	}

	prod.Close() // flush buffered movements
	prod.WaitClosed()
}

// newLockStore picks the lock backend. The memory backend is only correct
// when a single api process serves all traffic.
func newLockStore(cfg config.Config, log zerolog.Logger) (stocklock.Store, func(), error) {
	switch cfg.Lock.Backend {
	case config.LockBackendZooKeeper:
		conn, _, err := zk.Connect(cfg.Lock.ZooKeeperServers, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		store, err := stocklock.NewZooKeeperStore(conn, stocklock.DefaultZooKeeperRoot)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return store, conn.Close, nil
	case config.LockBackendMemory:
		log.Warn().Msg("in-process stock locks: run a single api replica")
		return stocklock.NewMemoryStore(nil), func() {}, nil
	default:
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisDB)
		return stocklock.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	}
}
