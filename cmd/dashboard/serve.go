package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelzeko/dengue-watch/internal/api"
	"github.com/abelzeko/dengue-watch/internal/content"
	"github.com/abelzeko/dengue-watch/internal/integration"
	"github.com/abelzeko/dengue-watch/internal/integration/openai"
	"github.com/abelzeko/dengue-watch/internal/prediction"
	"github.com/abelzeko/dengue-watch/internal/repository"
	"github.com/abelzeko/dengue-watch/internal/scheduler"
	"github.com/abelzeko/dengue-watch/internal/session"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

const (
	jobRiskRefresh  = "risk-refresh"
	jobSessionSweep = "session-sweep"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard, run scheduled jobs and the optional alerts bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("Starting Dengue Watch...")
	site := content.Default()

	// Initialize repository
	repo, err := repository.NewSQLRepository(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	// Initialize risk data source and cache
	fetcher := integration.NewRiskDataFetcher(cfg.RiskDataURL, nil, logger)
	cache := integration.NewRiskCache(fetcher, cfg.RiskCacheTTL, logger)

	// Initialize use cases
	riskUseCase := usecases.NewRiskUseCase(cache, logger)
	guidanceUseCase := usecases.NewGuidanceUseCase(site)
	alertsUseCase := usecases.NewAlertsUseCase(repo, logger)

	// Optional Telegram alerts bot
	var bot *api.TelegramBot
	var notifier usecases.Notifier
	if cfg.AlertsEnabled() {
		bot, err = api.NewTelegramBot(cfg.TelegramBotToken, api.BotDeps{
			Risk:     riskUseCase,
			Guidance: guidanceUseCase,
			Alerts:   alertsUseCase,
		}, cfg.AlertRateLimit, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		notifier = bot
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN is not set, community alerts are disabled")
	}

	alertsURL := cfg.AlertBotURL
	if alertsURL == "" && bot != nil {
		alertsURL = "https://t.me/" + bot.UserName()
	}

	// Optional external risk assessor
	var predictor prediction.Predictor
	if cfg.OpenAIAPIKey != "" {
		assessor, err := openai.NewRiskAssessor(cfg.OpenAIAPIKey, logger)
		if err != nil {
			logger.Warnf("Failed to initialize OpenAI risk assessor, using placeholder: %v", err)
		} else {
			logger.Info("Using OpenAI risk assessor for environmental predictions")
			predictor = assessor
		}
	}
	predictionUseCase := usecases.NewPredictionUseCase(predictor, nil, notifier, logger)
	defer predictionUseCase.Wait()

	sessions := session.NewStore(cfg.SessionIdleTimeout)

	server, err := api.NewServer(api.Services{
		Risk:       riskUseCase,
		Cases:      usecases.NewCasesUseCase(logger),
		Fumigation: usecases.NewFumigationUseCase(site.Fumigation, repo, logger),
		Prediction: predictionUseCase,
		Guidance:   guidanceUseCase,
		Sessions:   sessions,
	}, alertsURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Set up scheduled jobs
	jobs := scheduler.New(logger)
	if err := jobs.Add(jobRiskRefresh, cfg.RiskRefreshSchedule, cache.Refresh); err != nil {
		return err
	}
	err = jobs.Add(jobSessionSweep, cfg.SessionSweepSchedule, func(context.Context) error {
		if removed := sessions.Sweep(); removed > 0 {
			logger.Infof("Swept %d idle sessions", removed)
		}
		return nil
	})
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		jobs.Stop(stopCtx)
	}()

	// Warm the risk cache without delaying startup
	go func() {
		if err := jobs.RunNow(jobRiskRefresh); err != nil {
			logger.Warnf("Initial risk data refresh failed: %v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.Port))
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Dengue Watch stopped")
	return nil
}
