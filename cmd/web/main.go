package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"visionchat/internal/api"
	"visionchat/internal/app"
	"visionchat/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := app.NewLogger(cfg)

	httpClient := app.NewHTTPClient(cfg, logger)
	dispatcher := app.NewDispatcher(cfg, httpClient, logger)

	s := api.New(api.Options{
		Dispatcher:      dispatcher,
		DefaultProvider: cfg.Provider,
		RequestTimeout:  cfg.RequestTimeout,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "provider", cfg.Provider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
