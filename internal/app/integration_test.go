//go:build integration

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"facturard/internal/config"
	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/types"
	"facturard/internal/domain/auth"
	"facturard/internal/domain/batches"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/domain/subscription"
	infranumerator "facturard/internal/infrastructure/numerator"
	"facturard/pkg/logger"
)

func startApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("facturard_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn, logger.Nop()))

	cfg := &config.Configuration{
		Env:      config.EnvDevelopment,
		Database: config.DatabaseConfig{URL: dsn, MaxConns: 10, MinConns: 1},
		Server:   config.ServerConfig{IdempotencyTTL: time.Hour},
		JWT: config.JWTConfig{
			Secret:          "integration-secret",
			Issuer:          "facturard-test",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Subscription: config.SubscriptionConfig{DefaultPlan: "free", Period: 30 * 24 * time.Hour},
	}

	a, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.Subscriptions.SavePlan(ctx, &subscription.Plan{
		Code:            "free",
		Name:            "Free",
		Price:           types.MustMoney("0"),
		Currency:        "DOP",
		QuotaExpression: "true",
		IsActive:        true,
	}))
	return a
}

// account registers a user and returns a context acting as that user.
func account(t *testing.T, a *App, email string) (context.Context, id.ID) {
	t.Helper()
	user, err := a.Auth.Register(context.Background(), auth.RegisterRequest{
		Email:        email,
		Password:     "password123",
		BusinessName: "Test SRL",
		TaxID:        "131888445",
	})
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: user.ID.String(),
		Email:  user.Email,
	})
	return ctx, user.ID
}

func createBatch(t *testing.T, ctx context.Context, a *App, series numerator.Series, docType numerator.DocumentType, from, to int64) *batches.Batch {
	t.Helper()
	b, err := a.Batches.Create(ctx, batches.CreateRequest{
		DocumentType: docType,
		Series:       series,
		RangeStart:   from,
		RangeEnd:     to,
	})
	require.NoError(t, err)
	return b
}

func consumoInvoice() invoice.IssueInvoiceRequest {
	return invoice.IssueInvoiceRequest{
		DocumentType: numerator.TypeEConsumo,
		CustomerName: "Consumidor final",
		Date:         time.Now().UTC(),
		Currency:     "DOP",
		Lines: []invoice.LineInput{{
			Description: "Servicio",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   types.MustMoney("1000"),
			TaxRate:     types.ITBISStandard,
		}},
	}
}

func TestIntegration_SequentialAllocation(t *testing.T) {
	a := startApp(t)
	ctx, _ := account(t, a, "seq@example.com")
	createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeEConsumo, 1, 3)

	for _, want := range []string{"E320000000001", "E320000000002", "E320000000003"} {
		doc, err := a.Documents.IssueInvoice(ctx, consumoInvoice())
		require.NoError(t, err)
		assert.Equal(t, want, doc.SequenceIdentifier)
	}

	_, err := a.Documents.IssueInvoice(ctx, consumoInvoice())
	assert.True(t, apperror.HasCode(err, apperror.CodeNoSequenceAvailable), "got %v", err)
}

func TestIntegration_ConcurrentAllocationSingleSlot(t *testing.T) {
	a := startApp(t)
	ctx, ownerID := account(t, a, "race@example.com")
	createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeECreditoFiscal, 7, 7)

	alloc := infranumerator.New(infranumerator.FromProvider(a.TxManager))

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []string
		exhausted int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := alloc.Allocate(ctx, ownerID, numerator.TypeECreditoFiscal)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, numerator.ErrNoSequenceAvailable)
				exhausted++
				return
			}
			successes = append(successes, got.Identifier())
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, []string{"E310000000007"}, successes)
	assert.Equal(t, callers-1, exhausted)
}

func TestIntegration_ReplacementBatchFreezesOldCursor(t *testing.T) {
	a := startApp(t)
	ctx, _ := account(t, a, "replace@example.com")
	old := createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeEConsumo, 1, 100)

	for i := 0; i < 2; i++ {
		_, err := a.Documents.IssueInvoice(ctx, consumoInvoice())
		require.NoError(t, err)
	}

	createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeEConsumo, 500, 600)
	doc, err := a.Documents.IssueInvoice(ctx, consumoInvoice())
	require.NoError(t, err)
	assert.Equal(t, "E320000000500", doc.SequenceIdentifier)

	frozen, err := a.Batches.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, frozen.IsActive)
	assert.Equal(t, int64(2), frozen.Cursor)
}

func TestIntegration_CreditNoteFlow(t *testing.T) {
	a := startApp(t)
	ctx, _ := account(t, a, "nc@example.com")
	createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeEConsumo, 1, 10)
	ncBatch := createBatch(t, ctx, a, numerator.SeriesElectronic, numerator.TypeENotaCredito, 1, 10)

	original, err := a.Documents.IssueInvoice(ctx, consumoInvoice())
	require.NoError(t, err)

	note, err := a.Documents.IssueCreditNote(ctx, invoice.IssueCreditNoteRequest{
		OriginalID: original.ID,
		Reason:     "devolución",
		Date:       time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "E340000000001", note.SequenceIdentifier)
	assert.Equal(t, original.SequenceIdentifier, note.RelatedDocument)
	assert.True(t, note.Total.Equal(original.Total))

	modified, err := a.Documents.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusModified, modified.Status)
	assert.Equal(t, note.SequenceIdentifier, modified.RelatedDocument)

	_, err = a.Documents.IssueCreditNote(ctx, invoice.IssueCreditNoteRequest{
		OriginalID: original.ID,
		Reason:     "otra vez",
		Date:       time.Now().UTC(),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyAnnulled), "got %v", err)

	after, err := a.Batches.Get(ctx, ncBatch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.Cursor, "rejected credit note must not consume a number")
}

func TestIntegration_OwnersAreIsolated(t *testing.T) {
	a := startApp(t)
	ctxA, _ := account(t, a, "a@example.com")
	ctxB, _ := account(t, a, "b@example.com")
	createBatch(t, ctxA, a, numerator.SeriesElectronic, numerator.TypeEConsumo, 1, 10)

	doc, err := a.Documents.IssueInvoice(ctxA, consumoInvoice())
	require.NoError(t, err)

	_, err = a.Documents.Get(ctxB, doc.ID)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)

	_, err = a.Documents.IssueInvoice(ctxB, consumoInvoice())
	assert.True(t, apperror.HasCode(err, apperror.CodeNoSequenceAvailable), "got %v", err)
}
