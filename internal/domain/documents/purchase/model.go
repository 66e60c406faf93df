// Package purchase records supplier invoices received by the owner. They feed
// the DGII 606 report.
package purchase

import (
	"context"
	"strings"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/taxid"
	"facturard/internal/core/types"
)

// ExpenseType is the DGII 606 expense classification code.
type ExpenseType string

// Expense types accepted by the 606 format.
var expenseTypes = map[ExpenseType]string{
	"01": "Gastos de personal",
	"02": "Gastos por trabajos, suministros y servicios",
	"03": "Arrendamientos",
	"04": "Gastos de activos fijos",
	"05": "Gastos de representación",
	"06": "Otras deducciones admitidas",
	"07": "Gastos financieros",
	"08": "Gastos extraordinarios",
	"09": "Compras y gastos que formarán parte del costo de venta",
	"10": "Adquisiciones de activos",
	"11": "Gastos de seguros",
}

// IsValid reports whether e is a known code.
func (e ExpenseType) IsValid() bool {
	_, ok := expenseTypes[e]
	return ok
}

// Description returns the DGII label.
func (e ExpenseType) Description() string {
	return expenseTypes[e]
}

// PaymentMethod is the DGII 606 payment form code.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "01"
	PaymentTransfer   PaymentMethod = "02"
	PaymentCard       PaymentMethod = "03"
	PaymentCredit     PaymentMethod = "04"
	PaymentBarter     PaymentMethod = "05"
	PaymentCreditNote PaymentMethod = "06"
	PaymentMixed      PaymentMethod = "07"
)

func (p PaymentMethod) valid() bool {
	return p == "" || (p >= PaymentCash && p <= PaymentMixed && len(p) == 2)
}

// Purchase is one supplier document.
type Purchase struct {
	entity.Document

	SupplierTaxID string `db:"supplier_tax_id" json:"supplierTaxId"`
	SupplierName  string `db:"supplier_name" json:"supplierName,omitempty"`

	// SupplierNCF is the supplier's fiscal number. ModifiedNCF is set when
	// the record is a supplier credit or debit note.
	SupplierNCF string `db:"supplier_ncf" json:"supplierNcf"`
	ModifiedNCF string `db:"modified_ncf" json:"modifiedNcf,omitempty"`

	ExpenseType ExpenseType `db:"expense_type" json:"expenseType"`
	PaymentDate *time.Time  `db:"payment_date" json:"paymentDate,omitempty"`

	ServicesAmount types.Money `db:"services_amount" json:"servicesAmount"`
	GoodsAmount    types.Money `db:"goods_amount" json:"goodsAmount"`
	ITBIS          types.Money `db:"itbis" json:"itbis"`
	ITBISWithheld  types.Money `db:"itbis_withheld" json:"itbisWithheld"`
	ISRWithheld    types.Money `db:"isr_withheld" json:"isrWithheld"`

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod,omitempty"`
}

// Total is the billed amount before withholdings.
func (p *Purchase) Total() types.Money {
	return p.ServicesAmount.Add(p.GoodsAmount)
}

// Validate implements entity.Validatable interface.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if !taxid.Validate(p.SupplierTaxID) {
		return apperror.NewInvalidTaxID("supplierTaxId")
	}
	if _, err := numerator.Parse(p.SupplierNCF); err != nil {
		return apperror.NewValidation("malformed supplier NCF").WithDetail("field", "supplierNcf")
	}
	if p.ModifiedNCF != "" {
		if _, err := numerator.Parse(p.ModifiedNCF); err != nil {
			return apperror.NewValidation("malformed modified NCF").WithDetail("field", "modifiedNcf")
		}
	}
	if !p.ExpenseType.IsValid() {
		return apperror.NewValidation("unknown expense type").WithDetail("field", "expenseType")
	}
	if !p.PaymentMethod.valid() {
		return apperror.NewValidation("unknown payment method").WithDetail("field", "paymentMethod")
	}

	amounts := map[string]types.Money{
		"servicesAmount": p.ServicesAmount,
		"goodsAmount":    p.GoodsAmount,
		"itbis":          p.ITBIS,
		"itbisWithheld":  p.ITBISWithheld,
		"isrWithheld":    p.ISRWithheld,
	}
	for field, v := range amounts {
		if v.IsNegative() {
			return apperror.NewValidation("amount must not be negative").WithDetail("field", field)
		}
	}
	if !p.Total().IsPositive() {
		return apperror.NewValidation("services or goods amount is required").WithDetail("field", "servicesAmount")
	}
	if p.ITBISWithheld.GreaterThan(p.ITBIS) {
		return apperror.NewValidation("withheld ITBIS exceeds invoiced ITBIS").WithDetail("field", "itbisWithheld")
	}
	if p.PaymentDate != nil && p.PaymentDate.Before(p.Date) {
		return apperror.NewValidation("payment date must not precede the document date").WithDetail("field", "paymentDate")
	}
	return nil
}

// CreateRequest holds the input for a new purchase.
type CreateRequest struct {
	SupplierTaxID  string
	SupplierName   string
	SupplierNCF    string
	ModifiedNCF    string
	ExpenseType    ExpenseType
	Date           time.Time
	PaymentDate    *time.Time
	ServicesAmount types.Money
	GoodsAmount    types.Money
	ITBIS          types.Money
	ITBISWithheld  types.Money
	ISRWithheld    types.Money
	PaymentMethod  PaymentMethod
	Comment        string
}

// New builds a purchase from a request, normalizing identifiers and rounding amounts.
func New(ownerID id.ID, req CreateRequest) *Purchase {
	p := &Purchase{
		Document:       entity.NewDocument(ownerID),
		SupplierTaxID:  taxid.Normalize(req.SupplierTaxID),
		SupplierName:   strings.TrimSpace(req.SupplierName),
		SupplierNCF:    strings.ToUpper(strings.TrimSpace(req.SupplierNCF)),
		ModifiedNCF:    strings.ToUpper(strings.TrimSpace(req.ModifiedNCF)),
		ExpenseType:    req.ExpenseType,
		PaymentDate:    req.PaymentDate,
		ServicesAmount: types.Round(req.ServicesAmount),
		GoodsAmount:    types.Round(req.GoodsAmount),
		ITBIS:          types.Round(req.ITBIS),
		ITBISWithheld:  types.Round(req.ITBISWithheld),
		ISRWithheld:    types.Round(req.ISRWithheld),
		PaymentMethod:  req.PaymentMethod,
	}
	p.Comment = strings.TrimSpace(req.Comment)
	if !req.Date.IsZero() {
		p.Date = req.Date.UTC()
	}
	return p
}
