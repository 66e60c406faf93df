// Package main is the entry point for the facturard background worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facturard/internal/app"
	"facturard/internal/config"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/internal/worker"
	"facturard/pkg/logger"
)

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
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting facturard worker")

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	a.RegisterMetrics(prometheus.DefaultRegisterer)

	var metricsSrv *http.Server
	if cfg.Worker.MetricsAddress != "" {
		metricsSrv = serveMetrics(cfg.Worker.MetricsAddress, log)
	}

	wc := cfg.Worker
	relay := postgres.NewOutboxRelay(a.TxManager, wc.OutboxBatchSize, worker.LogDelivery(log))
	jobLog := log.WithComponent("jobs")

	runner := worker.NewRunner(log,
		worker.OutboxJob(relay, wc.OutboxInterval, wc.OutboxBatchSize),
		worker.PurgeOutboxJob(relay, wc.CleanupInterval, wc.OutboxRetention, jobLog),
		worker.CleanupJob("refresh_tokens", wc.CleanupInterval, a.Auth.CleanupExpiredTokens, jobLog),
		worker.CleanupJob("idempotency_keys", wc.CleanupInterval, a.Idempotency.CleanupExpired, jobLog),
		worker.CleanupJob("subscription_periods", wc.CleanupInterval, a.Subscriptions.RollPeriods, jobLog),
		worker.LowStockJob(a.Batches, cfg.Numbering.LowStockThreshold, wc.LowStockInterval, jobLog),
	)
	runner.Run(ctx)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("metrics server shutdown", "error", err)
		}
	}

	log.Info("worker stopped")
}

func serveMetrics(addr string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("metrics listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	return srv
}
