// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/portfolio-backtester/internal/backtest"
	"github.com/yourusername/portfolio-backtester/internal/config"
	"github.com/yourusername/portfolio-backtester/internal/database"
	"github.com/yourusername/portfolio-backtester/internal/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "config/config.yaml", "Path to config file")
		portfolioID   = flag.String("portfolio", "", "Portfolio ID to backtest (UUID)")
		portfolioName = flag.String("portfolio-name", "", "Portfolio name to backtest (alternative to -portfolio)")
		startDate     = flag.String("start-date", "", "Override start date (YYYY-MM-DD)")
		endDate       = flag.String("end-date", "", "Override end date (YYYY-MM-DD)")
		investment    = flag.Float64("investment", 0, "Override initial investment")
		rebalance     = flag.String("rebalance", "", "Override rebalance frequency: NEVER, MONTHLY, QUARTERLY, ANNUALLY")
		output        = flag.String("output", "", "Output path for the result JSON")
		save          = flag.Bool("save", false, "Persist the result to the database")
	)
	flag.Parse()

	ctx := context.Background()

	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	btConfig := buildBacktestConfig(cfg, *output, *startDate, *endDate, *investment, *rebalance, log)

	engine := buildEngine(ctx, cfg, btConfig, log)
	defer engine.Close(ctx)

	id := resolvePortfolioID(ctx, engine, *portfolioID, *portfolioName, log)

	runLog := logger.NewRunLogger(log)
	runLog.LogBacktestStarted(id.String(), *portfolioName,
		btConfig.StartDate, btConfig.EndDate, btConfig.InitialInvestment, string(btConfig.RebalanceFrequency))

	started := time.Now()
	result, err := engine.Run(ctx, id)
	if err != nil {
		runLog.LogBacktestFailed(id.String(), err.Error())
		log.Fatalf("Backtest failed: %v", err)
	}
	runLog.LogBacktestCompleted(id.String(),
		result.Metrics.FinalValue, result.Metrics.TotalReturn, result.Metrics.MaxDrawdown,
		time.Since(started).Seconds())

	fmt.Println(backtest.GenerateConsoleReport(result))

	if btConfig.OutputPath != "" {
		if err := backtest.ExportToJSON(result, btConfig.OutputPath); err != nil {
			log.Fatalf("Failed to export result: %v", err)
		}
		log.WithField("path", btConfig.OutputPath).Info("Result written")
	}

	if *save {
		if err := backtest.ExportToDatabase(ctx, result, engine.Repositories().BacktestResult); err != nil {
			log.Fatalf("Failed to persist result: %v", err)
		}
		log.WithField("result_id", result.ID).Info("Result persisted")
	}
}

func loadConfigWithSecrets(path string) *config.Config {
	bootLog := logrus.New()

	cfg, err := config.Load(path)
	if err != nil {
		bootLog.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			bootLog.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			bootLog.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		bootLog.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildBacktestConfig(cfg *config.Config, output, startOverride, endOverride string, investment float64, rebalance string, log *logrus.Logger) backtest.BacktestConfig {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		log.Fatalf("Invalid backtest config: %v", err)
	}
	if output != "" {
		btConfig.OutputPath = output
	}
	if investment > 0 {
		btConfig.InitialInvestment = investment
	}
	if rebalance != "" {
		frequency, err := backtest.ParseRebalanceFrequency(rebalance)
		if err != nil {
			log.Fatalf("Invalid rebalance frequency: %v", err)
		}
		btConfig.RebalanceFrequency = frequency
	}
	if startOverride != "" {
		parsed, err := time.Parse("2006-01-02", startOverride)
		if err != nil {
			log.Fatalf("Invalid start date: %v", err)
		}
		btConfig.StartDate = parsed
	}
	if endOverride != "" {
		parsed, err := time.Parse("2006-01-02", endOverride)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
		btConfig.EndDate = parsed
	}
	if err := btConfig.Validate(); err != nil {
		log.Fatalf("Invalid backtest parameters: %v", err)
	}
	return btConfig
}

func buildEngine(ctx context.Context, cfg *config.Config, btConfig backtest.BacktestConfig, log *logrus.Logger) *backtest.Engine {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	engine, err := backtest.NewEngine(btConfig, db, log)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func resolvePortfolioID(ctx context.Context, engine *backtest.Engine, rawID, name string, log *logrus.Logger) uuid.UUID {
	if rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			log.Fatalf("Invalid portfolio ID %q: %v", rawID, err)
		}
		return id
	}
	if name != "" {
		portfolio, err := engine.Repositories().Portfolio.GetByName(ctx, name)
		if err != nil {
			log.Fatalf("Failed to find portfolio %q: %v", name, err)
		}
		return portfolio.ID
	}
	log.Fatal("Either -portfolio or -portfolio-name must be provided")
	return uuid.Nil
}
