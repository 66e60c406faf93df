// Package app wires repositories and services into the object graph shared
// by the server, worker, seed and facturactl binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"facturard/internal/config"
	"facturard/internal/domain"
	"facturard/internal/domain/auth"
	"facturard/internal/domain/batches"
	"facturard/internal/domain/customers"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/domain/documents/purchase"
	"facturard/internal/domain/reports"
	"facturard/internal/domain/subscription"
	"facturard/internal/infrastructure/metrics"
	"facturard/internal/infrastructure/numerator"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/internal/infrastructure/storage/postgres/auth_repo"
	"facturard/internal/infrastructure/storage/postgres/billing_repo"
	"facturard/internal/infrastructure/storage/postgres/catalog_repo"
	"facturard/internal/infrastructure/storage/postgres/document_repo"
	"facturard/internal/infrastructure/storage/postgres/report_repo"
	"facturard/pkg/logger"
)

// App holds the wired services. Close releases the pool.
type App struct {
	Config *config.Configuration
	Logger *logger.Logger

	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	JWT           *auth.JWTService
	Auth          *auth.Service
	Customers     *customers.Service
	Batches       *batches.Service
	Documents     *invoice.Service
	Purchases     *purchase.Service
	Reports       *reports.Service
	Subscriptions *subscription.Service

	Outbox      *postgres.OutboxPublisher
	Audit       *postgres.AuditService
	Idempotency *postgres.IdempotencyStore
}

// New connects to the database and builds every service.
func New(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.StatementTimeout = cfg.Database.StatementTimeout

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a, err := build(cfg, log, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Configuration, log *logger.Logger, pool *postgres.Pool) (*App, error) {
	txm := postgres.NewTxManager(pool)

	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	outbox := postgres.NewOutboxPublisher(txm)

	a := &App{
		Config:      cfg,
		Logger:      log,
		Pool:        pool,
		TxManager:   txm,
		Outbox:      outbox,
		Audit:       auditSvc,
		Idempotency: postgres.NewIdempotencyStore(txm, cfg.Server.IdempotencyTTL),
	}

	// Subscriptions first: auth and issuance depend on it.
	policy, err := subscription.NewQuotaPolicy()
	if err != nil {
		return nil, fmt.Errorf("quota policy: %w", err)
	}
	invoiceRepo := document_repo.NewInvoiceRepo(txm)
	a.Subscriptions = subscription.NewService(
		billing_repo.NewSubscriptionRepo(txm),
		invoiceRepo,
		policy,
		txm,
		outbox,
		subscription.Config{
			DefaultPlan: cfg.Subscription.DefaultPlan,
			Period:      cfg.Subscription.Period,
		},
	)

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer
	jwtCfg.AccessTokenTTL = cfg.JWT.AccessTokenTTL
	a.JWT = auth.NewJWTService(jwtCfg)

	authCfg := auth.DefaultServiceConfig()
	authCfg.RefreshTokenExpiry = cfg.JWT.RefreshTokenTTL
	a.Auth = auth.NewService(
		auth_repo.NewUserRepo(txm),
		auth_repo.NewTokenRepo(txm),
		a.Subscriptions,
		txm,
		a.JWT,
		authCfg,
	)

	a.Customers = customers.NewService(catalog_repo.NewCustomerRepo(txm), txm, auditSvc)
	a.Batches = batches.NewService(catalog_repo.NewBatchRepo(txm), txm, outbox, auditSvc)

	a.Documents = invoice.NewService(invoice.Deps{
		Repo:      invoiceRepo,
		Allocator: numerator.New(numerator.FromProvider(txm)),
		Customers: a.Customers,
		Quota:     a.Subscriptions,
		TxManager: txm,
		Events:    outbox,
		Audit:     auditSvc,
	}, invoice.Config{EnforceExpiry: cfg.Numbering.EnforceExpiry})
	a.Documents.Hooks().On(domain.AfterCreate, countIssued)

	purchaseRepo := document_repo.NewPurchaseRepo(txm)
	a.Purchases = purchase.NewService(purchaseRepo, txm, auditSvc)
	a.Reports = reports.NewService(report_repo.NewReportRepo(txm), invoiceRepo, purchaseRepo)

	return a, nil
}

func countIssued(_ context.Context, doc *invoice.Document) error {
	metrics.DocumentsIssued.WithLabelValues(string(doc.Kind), string(doc.DocumentType)).Inc()
	return nil
}

// RegisterMetrics exposes pool gauges on reg.
func (a *App) RegisterMetrics(reg prometheus.Registerer) {
	metrics.RegisterPool(reg, func() metrics.PoolStats { return a.Pool.Stat() })
}

// Migrate applies pending schema migrations.
func (a *App) Migrate() error {
	return Migrate(a.Config.Database.URL, a.Logger)
}

// Migrate applies pending schema migrations to the database at dsn.
func Migrate(dsn string, log *logger.Logger) error {
	m, err := postgres.NewMigrator(dsn, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
