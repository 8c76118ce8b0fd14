package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"

	"gpt-relay-bot/config"
	"gpt-relay-bot/internal/completion"
	"gpt-relay-bot/internal/dispatch"
	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/internal/httpserver"
	"gpt-relay-bot/internal/liveness"
	"gpt-relay-bot/internal/session"
	tgDelivery "gpt-relay-bot/internal/session/delivery/telegram"
	sessionUC "gpt-relay-bot/internal/session/usecase"
	"gpt-relay-bot/pkg/llmprovider"
	"gpt-relay-bot/pkg/log"
	"gpt-relay-bot/pkg/telegram"
)

const (
	updateModePolling = "polling"
	updateModeWebhook = "webhook"
)

func main() {
	// 0. .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println("Failed to load .env: ", err)
	}

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		os.Exit(1)
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})
	defer func() { _ = log.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf(ctx, "Bot stopped with error: %v", err)
		_ = log.Sync(logger)
		os.Exit(1)
	}
	logger.Info(ctx, "Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info(ctx, "Starting gpt-relay-bot...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)

	// 3. Telegram client
	token, err := cfg.ResolveBotToken()
	if err != nil {
		return err
	}
	bot := telegram.NewBot(token)

	botUsername := cfg.Telegram.Username
	if botUsername == "" {
		if me, meErr := bot.GetMe(ctx); meErr != nil {
			logger.Warnf(ctx, "getMe failed, /cmd@bot suffixes will not be checked: %v", meErr)
		} else {
			botUsername = me.Username
			logger.Infof(ctx, "Running as @%s", botUsername)
		}
	}

	// 4. Completion backends
	providers, initErrs, err := llmprovider.InitializeProviders(ctx, &cfg.LLM)
	for _, e := range initErrs {
		logger.Warnf(ctx, "LLM provider skipped: %v", e)
	}
	if err != nil {
		return fmt.Errorf("initialize LLM providers: %w", err)
	}
	manager := llmprovider.NewManager(providers, &llmprovider.Config{
		FallbackEnabled: cfg.LLM.FallbackEnabled,
		RetryAttempts:   cfg.LLM.RetryAttempts,
		RetryDelay:      cfg.LLM.RetryDelayDuration(),
		MaxTotalTimeout: cfg.LLM.MaxTotalTimeoutDuration(),
	}, logger)
	primary := manager.Primary()
	logger.Infof(ctx, "Primary LLM provider: %s (%s), %d configured", primary.Name(), primary.Model(), len(providers))

	gateway := completion.New(logger, manager, completion.Config{
		Sentinels: cfg.Completion.Sentinels,
		Retry: completion.RetryPolicy{
			MaxAttempts: cfg.Completion.SentinelMaxAttempts,
			Interval:    cfg.Completion.SentinelInterval,
		},
		Fallback:    cfg.Completion.FallbackMessage,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if cfg.Completion.SentinelMaxAttempts < 0 {
		logger.Warn(ctx, "completion.sentinel_max_attempts is negative: sentinel answers are retried without limit")
	}

	// 5. Session domain
	store, err := history.New(history.Config{
		Backend:   cfg.History.Backend,
		MaxLength: cfg.History.MaxLength,
		LRUSize:   cfg.History.LRUSize,
		LRUTTL:    cfg.History.LRUTTL,
		OnEvict: func(userID int64) {
			logger.Debugf(ctx, "History evicted for user %d", userID)
		},
	})
	if err != nil {
		return fmt.Errorf("initialize history store: %w", err)
	}
	logger.Infof(ctx, "History backend: %s, max length %d", cfg.History.Backend, cfg.History.MaxLength)

	uc := sessionUC.New(logger, store, gateway, session.Config{
		Model:          primary.Model(),
		BotUsername:    botUsername,
		RecordFallback: cfg.Session.RecordFallback,
	})

	// 6. Delivery
	dispatcher := dispatch.New(logger, cfg.Dispatch.MaxWorkers)
	handler := tgDelivery.New(logger, uc, bot, dispatcher, cfg.Telegram.WebhookSecret)

	var wg conc.WaitGroup

	var monitor *liveness.Monitor
	if cfg.Liveness.Enabled {
		monitor = liveness.New(logger, bot, cfg.Liveness.Interval)
		wg.Go(func() { monitor.Run(ctx) })
	}

	var webhookHandler tgDelivery.Handler
	switch cfg.Telegram.UpdateMode {
	case updateModeWebhook:
		if err := registerWebhook(ctx, cfg, bot, logger); err != nil {
			return err
		}
		webhookHandler = handler
	case updateModePolling, "":
		if err := bot.DeleteWebhook(ctx, false); err != nil {
			logger.Warnf(ctx, "Failed to delete stale webhook: %v", err)
		}
		poller := tgDelivery.NewPoller(logger, bot, handler, cfg.Telegram.PollTimeout)
		wg.Go(func() { poller.Run(ctx) })
	default:
		return fmt.Errorf("unknown telegram.update_mode %q", cfg.Telegram.UpdateMode)
	}

	// 7. HTTP Server
	var serverErr error
	if cfg.HTTPServer.Enabled || webhookHandler != nil {
		srvCfg := httpserver.Config{
			Logger:          logger,
			Port:            cfg.HTTPServer.Port,
			Mode:            cfg.HTTPServer.Mode,
			Environment:     cfg.Environment.Name,
			TelegramHandler: webhookHandler,
		}
		if monitor != nil {
			srvCfg.Readiness = monitor
		}
		httpServer, err := httpserver.New(logger, srvCfg)
		if err != nil {
			return fmt.Errorf("initialize HTTP server: %w", err)
		}
		wg.Go(func() {
			if err := httpServer.Run(ctx); err != nil {
				serverErr = err
				cancel()
			}
		})
	}

	logger.Infof(ctx, "Bot started in %s mode", cfg.Telegram.UpdateMode)

	// 8. Shutdown
	<-ctx.Done()
	logger.Info(ctx, "Shutting down...")
	if r := wg.WaitAndRecover(); r != nil {
		logger.Errorf(ctx, "Background task panicked: %v", r.Value)
	}
	drainCtx, cancelDrain := context.WithTimeout(context.WithoutCancel(ctx), cfg.Dispatch.DrainTimeout)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warnf(ctx, "Dispatcher did not drain within %s: %v", cfg.Dispatch.DrainTimeout, err)
	}

	return serverErr
}

func registerWebhook(ctx context.Context, cfg *config.Config, bot *telegram.Bot, logger log.Logger) error {
	webhookURL := cfg.Telegram.WebhookURL
	if webhookURL == "" && cfg.Telegram.NgrokAPI != "" {
		ngrokURL, err := detectNgrokURL(ctx, cfg.Telegram.NgrokAPI, ngrokAttempts, ngrokInterval)
		if err != nil {
			logger.Warnf(ctx, "Could not detect ngrok URL: %v", err)
		} else {
			webhookURL = ngrokURL + httpserver.WebhookPath
			logger.Infof(ctx, "Auto-detected ngrok URL: %s", webhookURL)
		}
	}
	if webhookURL == "" {
		return errors.New("webhook mode requires telegram.webhook_url or a reachable telegram.ngrok_api")
	}

	if err := bot.SetWebhook(ctx, webhookURL, cfg.Telegram.WebhookSecret); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	logger.Infof(ctx, "Telegram webhook registered at %s", webhookURL)
	return nil
}
