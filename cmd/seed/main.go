// Package main seeds subscription plans and, optionally, a demo account with
// numbering batches.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"facturard/internal/app"
	"facturard/internal/config"
	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/numerator"
	"facturard/internal/core/types"
	"facturard/internal/domain/auth"
	"facturard/internal/domain/batches"
	"facturard/internal/domain/subscription"
	"facturard/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := app.Migrate(cfg.Database.URL, log); err != nil {
			log.Fatalw("failed to migrate", "error", err)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer a.Close()

	log.Info("connected to database")

	if err := seedPlans(ctx, a.Subscriptions, log); err != nil {
		log.Fatalw("failed to seed plans", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		user, err := seedDemoAccount(ctx, a.Auth, log)
		if err != nil {
			log.Fatalw("failed to seed demo account", "error", err)
		}
		if err := seedBatches(ctx, a.Batches, user, log); err != nil {
			log.Fatalw("failed to seed batches", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

var plans = []*subscription.Plan{
	{
		Code:            "free",
		Name:            "Gratis",
		Price:           types.MustMoney("0"),
		Currency:        "DOP",
		QuotaExpression: "documents_this_month < 50",
		IsActive:        true,
		SortOrder:       1,
	},
	{
		Code:            "pyme",
		Name:            "Pyme",
		Price:           types.MustMoney("1500"),
		Currency:        "DOP",
		QuotaExpression: "documents_this_month < 1000",
		IsActive:        true,
		SortOrder:       2,
	},
	{
		Code:            "empresa",
		Name:            "Empresa",
		Price:           types.MustMoney("4500"),
		Currency:        "DOP",
		QuotaExpression: "true",
		IsActive:        true,
		SortOrder:       3,
	},
}

func seedPlans(ctx context.Context, svc *subscription.Service, log *logger.Logger) error {
	for _, p := range plans {
		if err := svc.SavePlan(ctx, p); err != nil {
			return fmt.Errorf("plan %s: %w", p.Code, err)
		}
		log.Infow("plan saved", "code", p.Code, "quota", p.QuotaExpression)
	}
	return nil
}

func seedDemoAccount(ctx context.Context, svc *auth.Service, log *logger.Logger) (*auth.User, error) {
	email := getEnv("DEMO_EMAIL", "demo@facturard.do")
	password := getEnv("DEMO_PASSWORD", "Demo12345!")

	user, err := svc.Register(ctx, auth.RegisterRequest{
		Email:        email,
		Password:     password,
		BusinessName: "Comercial Demo SRL",
		TaxID:        "131888445",
	})
	if apperror.HasCode(err, apperror.CodeConflict) {
		log.Infow("demo account already exists", "email", email)
		_, user, err = svc.Login(ctx, auth.Credentials{Email: email, Password: password})
		if err != nil {
			return nil, fmt.Errorf("demo account exists with a different password: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	log.Infow("demo account created", "email", email, "user_id", user.ID)
	return user, nil
}

var demoBatches = []struct {
	series  numerator.Series
	docType numerator.DocumentType
	size    int64
}{
	{numerator.SeriesElectronic, numerator.TypeECreditoFiscal, 500},
	{numerator.SeriesElectronic, numerator.TypeEConsumo, 1000},
	{numerator.SeriesElectronic, numerator.TypeENotaCredito, 200},
	{numerator.SeriesTraditional, numerator.TypeCreditoFiscal, 500},
	{numerator.SeriesTraditional, numerator.TypeConsumo, 1000},
	{numerator.SeriesTraditional, numerator.TypeNotaCredito, 200},
}

func seedBatches(ctx context.Context, svc *batches.Service, user *auth.User, log *logger.Logger) error {
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: user.ID.String(), Email: user.Email})
	expires := time.Now().UTC().AddDate(1, 0, 0)

	for _, d := range demoBatches {
		existing, err := svc.ListFor(ctx, user.ID, batches.Filter{DocumentType: d.docType, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		b, err := svc.CreateFor(ctx, user.ID, batches.CreateRequest{
			DocumentType: d.docType,
			Series:       d.series,
			RangeStart:   1,
			RangeEnd:     d.size,
			ExpiresAt:    &expires,
		})
		if err != nil {
			return fmt.Errorf("batch %s%s: %w", d.series, d.docType, err)
		}
		log.Infow("batch created",
			"ncf_from", b.NextIdentifier(),
			"remaining", b.Remaining())
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
