// Package reports builds the DGII 606 (purchases) and 607 (sales) monthly
// reports and their pipe-delimited TXT rendering.
package reports

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/taxid"
	"facturard/internal/core/types"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/domain/documents/purchase"
)

const (
	dateLayout = "20060102"

	// incomeOperations is the 607 income type for operating revenue.
	incomeOperations = "01"

	statusValid     = "V"
	statusCancelled = "A"
)

// Service builds reports.
type Service struct {
	repo      Repository
	documents DocumentSource
	purchases PurchaseSource
}

// NewService creates a new reports service.
func NewService(repo Repository, documents DocumentSource, purchases PurchaseSource) *Service {
	return &Service{repo: repo, documents: documents, purchases: purchases}
}

// Build607 lists the fiscal documents issued in period. Cancelled documents
// are kept with status A; credit notes carry the NCF they modify.
func (s *Service) Build607(ctx context.Context, period Period) (*Report, error) {
	ownerID, rnc, err := reportOwner(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListForPeriod(ctx, ownerID, period.Start(), period.End())
	if err != nil {
		return nil, err
	}

	report := &Report{Format: Format607, TaxID: rnc, Period: period.String()}
	report.Rows = lo.Map(docs, func(d *invoice.Document, _ int) Row {
		status := statusValid
		if d.Status == invoice.StatusCancelled {
			status = statusCancelled
		}
		modified := ""
		if d.Kind == invoice.KindCreditNote {
			modified = d.RelatedDocument
		}
		return Row{
			d.CustomerTaxID,
			idType(d.CustomerTaxID),
			d.SequenceIdentifier,
			modified,
			incomeOperations,
			d.Date.Format(dateLayout),
			amount(d.Subtotal),
			amount(d.TaxTotal),
			status,
		}
	})

	active := lo.Filter(docs, func(d *invoice.Document, _ int) bool { return d.Status != invoice.StatusCancelled })
	report.Totals = Totals{
		Count:  len(docs),
		Amount: sumMoney(active, func(d *invoice.Document) types.Money { return signed(d, d.Subtotal) }),
		ITBIS:  sumMoney(active, func(d *invoice.Document) types.Money { return signed(d, d.TaxTotal) }),
	}
	return report, nil
}

// Build606 lists the purchases recorded in period.
func (s *Service) Build606(ctx context.Context, period Period) (*Report, error) {
	ownerID, rnc, err := reportOwner(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.purchases.ListForPeriod(ctx, ownerID, period.Start(), period.End())
	if err != nil {
		return nil, err
	}

	report := &Report{Format: Format606, TaxID: rnc, Period: period.String()}
	report.Rows = lo.Map(rows, func(p *purchase.Purchase, _ int) Row {
		paid := ""
		if p.PaymentDate != nil {
			paid = p.PaymentDate.Format(dateLayout)
		}
		return Row{
			p.SupplierTaxID,
			idType(p.SupplierTaxID),
			string(p.ExpenseType),
			p.SupplierNCF,
			p.ModifiedNCF,
			p.Date.Format(dateLayout),
			paid,
			amount(p.ServicesAmount),
			amount(p.GoodsAmount),
			amount(p.Total()),
			amount(p.ITBIS),
			amount(p.ITBISWithheld),
			amount(p.ISRWithheld),
			string(p.PaymentMethod),
		}
	})
	report.Totals = Totals{
		Count:  len(rows),
		Amount: sumMoney(rows, func(p *purchase.Purchase) types.Money { return p.Total() }),
		ITBIS:  sumMoney(rows, func(p *purchase.Purchase) types.Money { return p.ITBIS }),
	}
	return report, nil
}

// Summary returns per-type totals of documents dated in period.
func (s *Service) Summary(ctx context.Context, period Period) ([]DocumentTypeSummary, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.DocumentTypeSummary(ctx, ownerID, period.Start(), period.End())
	if err != nil {
		return nil, err
	}
	for i := range items {
		if series, ok := numerator.SeriesOf(items[i].DocumentType); ok {
			items[i].Description = items[i].DocumentType.Description(series)
		}
	}
	return items, nil
}

// WriteTXT renders the report in the DGII upload layout: a header line
// "<format>|<RNC>|<YYYYMM>|<count>" followed by one line per row.
func WriteTXT(w io.Writer, r *Report) error {
	lines := make([]string, 0, len(r.Rows)+1)
	lines = append(lines, strings.Join([]string{string(r.Format), r.TaxID, r.Period, strconv.Itoa(len(r.Rows))}, "|"))
	lines = append(lines, lo.Map(r.Rows, func(row Row, _ int) string { return strings.Join(row, "|") })...)
	_, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n")
	return err
}

// FileName is the conventional DGII file name, e.g. DGII_F_607_131888444_202603.TXT.
func FileName(r *Report) string {
	return "DGII_F_" + string(r.Format) + "_" + r.TaxID + "_" + r.Period + ".TXT"
}

func reportOwner(ctx context.Context) (id.ID, string, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return id.Nil(), "", err
	}
	user := appctx.GetUser(ctx)
	rnc := ""
	if user != nil {
		rnc = taxid.Normalize(user.TaxID)
	}
	if rnc == "" {
		return id.Nil(), "", apperror.NewValidation("account has no tax ID").WithDetail("field", "taxId")
	}
	return ownerID, rnc, nil
}

func idType(raw string) string {
	if raw == "" {
		return ""
	}
	return taxid.Classify(raw).ReportCode()
}

func amount(m types.Money) string {
	return types.Round(m).StringFixed(2)
}

// signed negates credit note amounts so totals reflect net sales.
func signed(d *invoice.Document, m types.Money) types.Money {
	if d.Kind == invoice.KindCreditNote {
		return m.Neg()
	}
	return m
}

func sumMoney[T any](items []T, fn func(T) types.Money) types.Money {
	return lo.Reduce(items, func(acc types.Money, item T, _ int) types.Money {
		return acc.Add(fn(item))
	}, types.Zero())
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}
