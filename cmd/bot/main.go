package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"visionchat/internal/app"
	"visionchat/internal/config"
	"visionchat/internal/handlers"
	"visionchat/internal/mediagroup"
	"visionchat/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		panic("TELEGRAM_BOT_TOKEN is required")
	}

	logger := app.NewLogger(cfg)
	httpClient := app.NewHTTPClient(cfg, logger)

	tg, err := telegram.New(telegram.Options{
		Token:         cfg.TelegramToken,
		HTTPClient:    httpClient,
		Logger:        logger,
		Debug:         cfg.Debug,
		MaxImageBytes: cfg.MaxImageBytes,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	handler := handlers.New(handlers.Options{
		Messenger:  tg,
		Dispatcher: app.NewDispatcher(cfg, httpClient, logger),
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := newWorkers(cfg.MaxConcurrent, cfg.RequestTimeout)

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush: func(group mediagroup.Group) {
			pool.Go(func(reqCtx context.Context) {
				handler.HandleMediaGroup(reqCtx, group)
			})
		},
	})
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "provider", cfg.Provider)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer shutdown(tg.StopUpdates, aggregator, pool, cfg.RequestTimeout, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			pool.Go(func(reqCtx context.Context) {
				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			})
		}
	}
}
