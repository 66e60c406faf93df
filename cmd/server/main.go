// Package main is the entry point for the facturard API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"facturard/internal/app"
	"facturard/internal/config"
	v1 "facturard/internal/infrastructure/http/v1"
	"facturard/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting facturard server", "version", version, "env", cfg.Env)

	if cfg.Database.AutoMigrate {
		if err := app.Migrate(cfg.Database.URL, log); err != nil {
			log.Fatalw("failed to migrate database", "error", err)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()
	a.RegisterMetrics(prometheus.DefaultRegisterer)

	routerCfg := v1.RouterConfig{
		Logger:        log,
		DB:            a.Pool,
		JWTValidator:  a.JWT,
		AuthService:   a.Auth,
		Customers:     a.Customers,
		Batches:       a.Batches,
		Documents:     a.Documents,
		Purchases:     a.Purchases,
		Reports:       a.Reports,
		Subscriptions: a.Subscriptions,
		Metrics:       true,
		Version:       version,
	}
	if cfg.Server.IdempotencyEnabled {
		routerCfg.Idempotency = a.Idempotency
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Errorw("server failed", "error", err)
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
