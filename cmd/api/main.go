package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ewilliams-labs/artistcompare/internal/adapters/rest"
	"github.com/ewilliams-labs/artistcompare/internal/app"
	"github.com/ewilliams-labs/artistcompare/internal/config"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration (defaults, config file, .env, environment, flags)
	fs := pflag.NewFlagSet("artistcompare-api", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default searches ./.artistcompare.* and ~/.artistcompare.*)")
	fs.String("addr", ":8080", "listen address")
	fs.String("storage", "sqlite", "history storage driver (sqlite|none)")
	fs.String("db", "artistcompare.db", "sqlite database path")
	fs.String("market", "US", "market used for top tracks")
	fs.String("resolver", "first", "artist resolution strategy (first|similarity)")
	fs.String("log-level", "info", "log level (debug|info|warn|error)")
	fs.String("log-format", "console", "log format (console|json|auto)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	v := config.New()
	if err := config.BindFlags(v, fs); err != nil {
		return err
	}
	cfg, err := config.Load(v, *configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// 2. Adapters, core service and history worker
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	// 3. Driving adapter
	handler := rest.NewHandler(application.Comparer, application.History, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	logger.Info("artistcompare is running",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Driver,
		"resolver", cfg.Resolver.Strategy,
		"market", cfg.Spotify.Market)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}
	return nil
}
