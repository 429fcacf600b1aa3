package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/amhaddad/okxbot/database"
	"github.com/amhaddad/okxbot/engine"
	"github.com/amhaddad/okxbot/fetch"
	"github.com/amhaddad/okxbot/notify"
	"github.com/amhaddad/okxbot/position"
	"github.com/amhaddad/okxbot/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		fmt.Printf("loading config: %v\n", err)
		return
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "okxbot").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exchange, err := fetch.NewOKXClient(&fetch.OKXConfig{
		APIKey:     cfg.OKXAPIKey,
		APISecret:  cfg.OKXAPISecret,
		Passphrase: cfg.OKXPassphrase,
		BaseURL:    fetch.BaseURL,
	})
	if err != nil {
		logger.Error().Msgf("creating okx client: %v", err)
		return
	}

	storeLogger := logger.With().Str("component", "store").Logger()
	store, err := position.NewStore(&position.StoreConfig{
		Dir:    cfg.StateDir,
		Logger: &storeLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating position store: %v", err)
		return
	}

	notifierLogger := logger.With().Str("component", "notifier").Logger()
	notifier, err := notify.NewTelegram(&notify.TelegramConfig{
		Token:   cfg.TelegramToken,
		ChatID:  cfg.TelegramChatID,
		BaseURL: notify.BaseURL,
		Logger:  &notifierLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating telegram notifier: %v", err)
		return
	}

	// The trade archive is optional, the flat file ledger stays authoritative.
	var archiveClosedTrade func(ctx context.Context, trade *position.ClosedTrade) error
	if cfg.RqliteEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.RqliteEndpoint,
			User:     cfg.RqliteUser,
			Pass:     cfg.RqlitePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			logger.Error().Msgf("creating trade archive database: %v", err)
			return
		}
		archiveClosedTrade = db.ArchiveClosedTrade
	}

	managerLogger := logger.With().Str("component", "positionmanager").Logger()
	manager, err := position.NewManager(&position.ManagerConfig{
		Exchange:           exchange,
		Store:              store,
		Notify:             notifier.Notify,
		ArchiveClosedTrade: archiveClosedTrade,
		Logger:             &managerLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating position manager: %v", err)
		return
	}

	evaluatorLogger := logger.With().Str("component", "evaluator").Logger()
	evaluator, err := engine.NewEvaluator(&engine.EvaluatorConfig{
		Exchange:  exchange,
		Timeframe: cfg.Timeframe,
		Logger:    &evaluatorLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating signal evaluator: %v", err)
		return
	}

	executorLogger := logger.With().Str("component", "executor").Logger()
	executor, err := engine.NewExecutor(&engine.ExecutorConfig{
		Exchange:         exchange,
		Store:            store,
		Timeframe:        cfg.Timeframe,
		TradeAmountUSDT:  cfg.TradeAmountUSDT,
		MaxOpenPositions: cfg.MaxOpenPositions,
		Logger:           &executorLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating trade executor: %v", err)
		return
	}

	botLogger := logger.With().Str("component", "bot").Logger()
	bot, err := service.NewBot(&service.BotConfig{
		Symbols:        cfg.Symbols,
		PollInterval:   time.Duration(cfg.PollIntervalSeconds) * time.Second,
		ListenAddr:     cfg.ListenAddr,
		ManagePosition: manager.ManagePosition,
		Evaluate:       evaluator.Evaluate,
		ExecuteBuy:     executor.ExecuteBuy,
		Notify:         notifier.Notify,
		Logger:         &botLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating trading bot: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	err = bot.Run(ctx)
	if err != nil {
		logger.Error().Msgf("running trading bot: %v", err)
	}
}
