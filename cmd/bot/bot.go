package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/abelzeko/dengue-watch/internal/api"
	"github.com/abelzeko/dengue-watch/internal/config"
	"github.com/abelzeko/dengue-watch/internal/content"
	"github.com/abelzeko/dengue-watch/internal/integration"
	"github.com/abelzeko/dengue-watch/internal/logging"
	"github.com/abelzeko/dengue-watch/internal/repository"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

func main() {
	cfg := config.Load()

	// Configure logging
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Starting Dengue Watch alerts bot...")

	if !cfg.AlertsEnabled() {
		logger.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	// Initialize repository
	repo, err := repository.NewSQLRepository(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize risk data source
	fetcher := integration.NewRiskDataFetcher(cfg.RiskDataURL, nil, logger)
	cache := integration.NewRiskCache(fetcher, cfg.RiskCacheTTL, logger)

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, api.BotDeps{
		Risk:     usecases.NewRiskUseCase(cache, logger),
		Guidance: usecases.NewGuidanceUseCase(content.Default()),
		Alerts:   usecases.NewAlertsUseCase(repo, logger),
	}, cfg.AlertRateLimit, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the bot
	if err := telegramBot.Start(ctx); err != nil {
		logger.Errorf("Bot stopped with error: %v", err)
	}
}
