// Package main provides the price synchronization CLI and service.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/portfolio-backtester/internal/config"
	"github.com/yourusername/portfolio-backtester/internal/database"
	"github.com/yourusername/portfolio-backtester/internal/health"
	"github.com/yourusername/portfolio-backtester/internal/logger"
	"github.com/yourusername/portfolio-backtester/internal/marketdata"
	appmetrics "github.com/yourusername/portfolio-backtester/internal/metrics"
	"github.com/yourusername/portfolio-backtester/internal/repository"
	"github.com/yourusername/portfolio-backtester/internal/scheduler"
	"github.com/yourusername/portfolio-backtester/internal/service"
	"github.com/yourusername/portfolio-backtester/internal/tracing"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile     string
	appLogger      *logrus.Logger
	cfg            *config.Config
	db             *database.DB
	repos          *repository.Repositories
	syncSvc        *service.SyncService
	tracingEnabled bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
}

var rootCmd = &cobra.Command{
	Use:   "price-sync",
	Short: "Synchronize daily close prices into the backtest database",
	Long:  `Fetches daily close prices from the market data provider and stores them for the backtest engine, either as a one-shot sync or as a scheduled service.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot price sync for the configured symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 1*time.Hour)
		defer cancel()
		defer db.Close(ctx)

		if tracingEnabled {
			var seg interface{ Close(error) }
			ctx, seg = tracing.StartSegment(ctx, "price-sync")
			defer func() { seg.Close(nil) }()
		}

		metrics, err := syncSvc.SyncSymbols(ctx, cfg.Sync.Symbols)
		if err != nil {
			return err
		}
		appLogger.WithField("metrics", metrics.String()).Info("Sync finished")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler with health and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		defer db.Close(ctx)

		healthServer := health.NewServer(health.Config{
			ServiceName: "price-sync",
			Version:     Version,
			Port:        cfg.Sync.HealthPort,
			Logger:      appLogger,
			DB:          db,
		})
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}

		if cfg.Metrics.Enabled {
			startMetricsServer(ctx)
		}

		sched := scheduler.NewScheduler(syncSvc, cfg.Sync.Symbols, appLogger)
		if err := sched.SchedulePriceSync(cfg.Sync.Schedule); err != nil {
			return fmt.Errorf("failed to schedule price sync: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		healthServer.SetReady(true)

		appLogger.WithFields(logrus.Fields{
			"schedule": cfg.Sync.Schedule,
			"next_run": sched.GetNextRun().Format(time.RFC3339),
			"version":  Version,
			"commit":   GitCommit,
		}).Info("Price sync service running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		appLogger.Info("Shutdown signal received")
		healthServer.SetReady(false)
		if err := sched.Stop(); err != nil {
			appLogger.WithError(err).Error("Failed to stop scheduler cleanly")
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return err
		}
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLogger = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	tracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if tracingEnabled {
		if err := tracing.Initialize(tracing.Config{
			ServiceName:  "price-sync",
			Enabled:      true,
			SamplingRate: 0.1,
			DaemonAddr:   os.Getenv("XRAY_DAEMON_ADDR"),
		}, appLogger); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	client := marketdata.NewClient(&cfg.MarketData, appLogger)
	source := marketdata.NewCachedPriceSource(client, time.Duration(cfg.MarketData.CacheTTLSeconds)*time.Second)

	syncSvc = service.NewSyncService(source, repos.Asset, repos.Price, appLogger, cfg.Sync.LookbackDays)
	return nil
}

func startMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, appmetrics.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		appLogger.WithFields(logrus.Fields{
			"port": cfg.Metrics.Port,
			"path": cfg.Metrics.Path,
		}).Info("Metrics server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
