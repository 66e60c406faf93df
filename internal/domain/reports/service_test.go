package reports_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/types"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/domain/documents/purchase"
	"facturard/internal/domain/reports"
)

type docSource []*invoice.Document

func (s docSource) ListForPeriod(_ context.Context, _ id.ID, from, to time.Time) ([]*invoice.Document, error) {
	var out []*invoice.Document
	for _, d := range s {
		if !d.Date.Before(from) && d.Date.Before(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

type purchaseSource []*purchase.Purchase

func (s purchaseSource) ListForPeriod(context.Context, id.ID, time.Time, time.Time) ([]*purchase.Purchase, error) {
	return s, nil
}

type summaryRepo struct{}

func (summaryRepo) DocumentTypeSummary(context.Context, id.ID, time.Time, time.Time) ([]reports.DocumentTypeSummary, error) {
	return []reports.DocumentTypeSummary{{DocumentType: "31", Count: 2}}, nil
}

func doc(ncf string, kind invoice.Kind, status invoice.Status, day int, subtotal, tax string) *invoice.Document {
	d := &invoice.Document{
		Document:           entity.Document{Date: time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)},
		Kind:               kind,
		SequenceIdentifier: ncf,
		CustomerTaxID:      "131888444",
		Status:             status,
		Subtotal:           types.MustMoney(subtotal),
		TaxTotal:           types.MustMoney(tax),
	}
	return d
}

func ownerCtx(taxID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: id.New().String(), TaxID: taxID})
}

func TestBuild607(t *testing.T) {
	inv := doc("E310000000001", invoice.KindInvoice, invoice.StatusModified, 2, "1000", "180")
	inv.RelatedDocument = "E340000000001"
	note := doc("E340000000001", invoice.KindCreditNote, invoice.StatusPending, 5, "1000", "180")
	note.RelatedDocument = "E310000000001"
	cancelled := doc("E310000000002", invoice.KindInvoice, invoice.StatusCancelled, 9, "50", "9")
	consumer := doc("E320000000001", invoice.KindInvoice, invoice.StatusPaid, 10, "200", "36")
	consumer.CustomerTaxID = ""
	april := doc("E310000000003", invoice.KindInvoice, invoice.StatusPending, 1, "1", "0")
	april.Date = april.Date.AddDate(0, 1, 0)

	svc := reports.NewService(summaryRepo{}, docSource{inv, note, cancelled, consumer, april}, nil)
	period, err := reports.ParsePeriod("202603")
	require.NoError(t, err)

	r, err := svc.Build607(ownerCtx("101-00000-1"), period)
	require.NoError(t, err)
	require.Len(t, r.Rows, 4)

	assert.Equal(t, reports.Row{"131888444", "1", "E340000000001", "E310000000001", "01", "20260305", "1000.00", "180.00", "V"}, r.Rows[1])
	assert.Equal(t, "A", r.Rows[2][8])
	assert.Equal(t, "", r.Rows[3][1])

	assert.Equal(t, 4, r.Totals.Count)
	assert.Equal(t, "200.00", r.Totals.Amount.StringFixed(2))
	assert.Equal(t, "36.00", r.Totals.ITBIS.StringFixed(2))

	var buf bytes.Buffer
	require.NoError(t, reports.WriteTXT(&buf, r))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "607|101000001|202603|4", lines[0])
	assert.Equal(t, "131888444|1|E310000000001||01|20260302|1000.00|180.00|V", lines[1])
	assert.Equal(t, "DGII_F_607_101000001_202603.TXT", reports.FileName(r))
}

func TestBuild606(t *testing.T) {
	paid := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	p := purchase.New(id.New(), purchase.CreateRequest{
		SupplierTaxID:  "00116454281",
		SupplierNCF:    "B0100000042",
		ExpenseType:    "02",
		Date:           time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		PaymentDate:    &paid,
		ServicesAmount: types.MustMoney("1000"),
		GoodsAmount:    types.MustMoney("250.5"),
		ITBIS:          types.MustMoney("225.09"),
		PaymentMethod:  purchase.PaymentTransfer,
	})

	svc := reports.NewService(summaryRepo{}, nil, purchaseSource{p})
	r, err := svc.Build606(ownerCtx("101000001"), reports.Period{Year: 2026, Month: time.March})
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, reports.Row{
		"00116454281", "2", "02", "B0100000042", "", "20260314", "20260320",
		"1000.00", "250.50", "1250.50", "225.09", "0.00", "0.00", "02",
	}, r.Rows[0])
	assert.Equal(t, "1250.50", r.Totals.Amount.StringFixed(2))
}

func TestBuild_RequiresAccountTaxID(t *testing.T) {
	svc := reports.NewService(summaryRepo{}, docSource{}, purchaseSource{})
	_, err := svc.Build607(ownerCtx(""), reports.Period{Year: 2026, Month: time.March})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Build606(context.Background(), reports.Period{Year: 2026, Month: time.March})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestSummary_Describes(t *testing.T) {
	svc := reports.NewService(summaryRepo{}, nil, nil)
	items, err := svc.Summary(ownerCtx("101000001"), reports.Period{Year: 2026, Month: time.March})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].Description)
}

func TestParsePeriod(t *testing.T) {
	p, err := reports.ParsePeriod("202612")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, "202612", p.String())

	_, err = reports.ParsePeriod("2026-12")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
