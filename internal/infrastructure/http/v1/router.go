// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facturard/internal/domain/auth"
	"facturard/internal/infrastructure/http/v1/handlers"
	"facturard/internal/infrastructure/http/v1/middleware"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// DB is pinged by /health/ready
	DB handlers.Pinger

	JWTValidator middleware.JWTValidator
	AuthService  *auth.Service

	Customers     handlers.CustomerService
	Batches       handlers.BatchService
	Documents     handlers.DocumentService
	Purchases     handlers.PurchaseService
	Reports       handlers.ReportService
	Subscriptions handlers.SubscriptionService

	// Idempotency enables Idempotency-Key handling on mutating routes when set.
	Idempotency *postgres.IdempotencyStore

	// Metrics exposes /metrics on the API listener.
	Metrics bool

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	middleware.SetupValidator()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.ContextLogger(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	base := handlers.NewBaseHandler()

	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, base, cfg)

		if cfg.Subscriptions != nil {
			v1.GET("/plans", handlers.NewSubscriptionHandler(base, cfg.Subscriptions).Plans)
		}

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		routes := map[string]RouteRegistrar{}
		if cfg.Customers != nil {
			routes["/customers"] = handlers.NewCustomerHandler(base, cfg.Customers)
		}
		if cfg.Batches != nil {
			routes["/batches"] = handlers.NewBatchHandler(base, cfg.Batches)
		}
		if cfg.Documents != nil {
			routes["/documents"] = handlers.NewDocumentHandler(base, cfg.Documents)
		}
		if cfg.Purchases != nil {
			routes["/purchases"] = handlers.NewPurchaseHandler(base, cfg.Purchases)
		}
		if cfg.Reports != nil {
			routes["/reports"] = handlers.NewReportsHandler(base, cfg.Reports)
		}
		if cfg.Subscriptions != nil {
			routes["/subscription"] = handlers.NewSubscriptionHandler(base, cfg.Subscriptions)
		}
		Mount(protected, routes)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	publicAuth := rg.Group("/auth")

	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}
