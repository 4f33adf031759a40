package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/raildeploy/internal/api"
	"github.com/edvin/raildeploy/internal/audit"
	"github.com/edvin/raildeploy/internal/config"
	"github.com/edvin/raildeploy/internal/db"
	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/logging"
	"github.com/edvin/raildeploy/internal/metrics"
	"github.com/edvin/raildeploy/internal/railapi"
	"github.com/edvin/raildeploy/internal/railcli"
	"github.com/edvin/raildeploy/internal/registry"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	criticalOrderFlag := flag.Int("critical-order-max", deploy.DefaultPolicy.CriticalOrderMax, "Highest deploy order whose failure halts a bulk rollout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(ctx, cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	services := registry.NewServiceStore(pool)
	ledger := registry.NewDeploymentStore(pool)

	auditStore := audit.NewStore(pool, logger)
	defer auditStore.Close()
	notifier := audit.NewLogNotifier(logger)

	executor := railcli.NewExecutor(logger, cfg.RailwayBinary, cfg.SandboxHome, cfg.SandboxPath)
	poller := railcli.NewPoller(logger, executor)
	apiClient := railapi.NewClient(cfg.RailwayAPIURL, cfg.RailwayToken, logger)

	deployer := deploy.NewSingleServiceDeployer(logger, executor, services, ledger, apiClient, auditStore, notifier, poller)
	orch := deploy.NewOrchestrator(logger, deployer, services, ledger, auditStore, notifier, deploy.Policy{
		CriticalOrderMax: *criticalOrderFlag,
	})

	srv := api.NewServer(logger, pool, services, deployer, orch, executor, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting deployment API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
