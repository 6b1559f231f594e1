package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/commonfund/escrowd/internal/client"
	"github.com/commonfund/escrowd/internal/config"
	"github.com/commonfund/escrowd/internal/events"
	"github.com/commonfund/escrowd/internal/handler"
	"github.com/commonfund/escrowd/internal/health"
	"github.com/commonfund/escrowd/internal/metrics"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/server"
	"github.com/commonfund/escrowd/internal/service"
	"github.com/commonfund/escrowd/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting escrowd",
		zap.String("store_backend", cfg.Store.Backend),
		zap.Int("port", cfg.Server.Port),
	)

	// Ledger store
	var ledger store.LedgerStore
	switch cfg.Store.Backend {
	case "postgres":
		ledger, err = store.NewPostgresLedgerStore(
			cfg.Store.Postgres.Host,
			cfg.Store.Postgres.Port,
			cfg.Store.Postgres.Database,
			cfg.Store.Postgres.User,
			cfg.Store.Postgres.Password,
			cfg.Store.Postgres.MaxConnections,
			cfg.Store.Postgres.MinConnections,
			logger,
		)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
	default:
		ledger = store.NewMemoryLedgerStore(logger)
	}
	defer ledger.Close()

	// Idempotency store
	var idempotencyStore store.IdempotencyStore
	if cfg.Redis.Enabled {
		idempotencyStore, err = store.NewRedisIdempotencyStore(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			logger,
		)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
	} else {
		idempotencyStore = store.NewMemoryIdempotencyStore()
	}
	defer idempotencyStore.Close()

	// Change-event publisher
	var publisher events.Publisher
	if cfg.Events.Enabled {
		natsPub, perr := events.NewNATSPublisher(cfg.Events.URL, cfg.Events.SubjectPrefix, logger)
		if perr != nil {
			logger.Fatal("failed to connect to nats", zap.Error(perr))
		}
		publisher = natsPub
	} else {
		publisher = events.NewNopPublisher()
	}
	defer publisher.Close()

	m := metrics.NewMetrics()

	// Token vault. A production deployment swaps this for a client of
	// the custody service.
	vault := client.NewMemoryVault(logger)

	roles := model.Roles{
		Owner:      cfg.Roles.Owner,
		Arbitrator: cfg.Roles.Arbitrator,
		Relayer:    cfg.Roles.Relayer,
		Executor:   cfg.Roles.Executor,
	}

	engine := service.NewEngine(
		ledger,
		vault,
		roles,
		service.EngineParams{
			RegistrationFee: cfg.Escrow.RegistrationFee,
			LedgerToken:     cfg.Escrow.FeeToken,
			BaselineStake:   cfg.Escrow.BaselineStake,
			MaxBatchSize:    cfg.Escrow.MaxBatchSize,
		},
		publisher,
		m,
		logger,
	)

	idempotency := service.NewIdempotencyService(idempotencyStore, cfg.Escrow.IdempotencyTTL, logger)

	checker := health.NewChecker(ledger, idempotencyStore, 10*time.Second, logger)
	defer checker.Stop()

	errorHandler := handler.NewErrorHandler(logger)
	h := handler.NewHandler(engine, idempotency, errorHandler, logger)

	srv := server.New(cfg.Server, cfg.RateLimiter, h, errorHandler, checker, logger)

	// Automation runner settles expired commitments without operator
	// intervention.
	var runner *service.AutomationRunner
	if cfg.Automation.Enabled {
		runner = service.NewAutomationRunner(engine, cfg.Roles.Executor, cfg.Automation.PollInterval, logger)
		runner.Start()
	}

	// Metrics server
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			logger.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
			if merr := metricsServer.ListenAndServe(); merr != nil && merr != http.ErrServerClosed {
				logger.Error("metrics server error", zap.Error(merr))
			}
		}()
	}

	// Start API server
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	if runner != nil {
		runner.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("escrowd stopped")
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zapCfg.Level = level
	}

	return zapCfg.Build()
}
