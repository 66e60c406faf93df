package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"facturard/internal/domain/documents/purchase"
)

// CreatePurchaseRequest records a supplier invoice for the 606 report.
type CreatePurchaseRequest struct {
	SupplierTaxID  string          `json:"supplierTaxId" binding:"required,taxid"`
	SupplierName   string          `json:"supplierName" binding:"max=250"`
	SupplierNCF    string          `json:"supplierNcf" binding:"required,min=11,max=13"`
	ModifiedNCF    string          `json:"modifiedNcf" binding:"omitempty,min=11,max=13"`
	ExpenseType    string          `json:"expenseType" binding:"required,len=2,numeric"`
	Date           Date            `json:"date"`
	PaymentDate    *Date           `json:"paymentDate"`
	ServicesAmount decimal.Decimal `json:"servicesAmount"`
	GoodsAmount    decimal.Decimal `json:"goodsAmount"`
	ITBIS          decimal.Decimal `json:"itbis"`
	ITBISWithheld  decimal.Decimal `json:"itbisWithheld"`
	ISRWithheld    decimal.Decimal `json:"isrWithheld"`
	PaymentMethod  string          `json:"paymentMethod" binding:"omitempty,len=2,numeric"`
	Comment        string          `json:"comment" binding:"max=1000"`
}

// ToDomain converts to the domain request. A missing date means today.
func (r *CreatePurchaseRequest) ToDomain(now time.Time) purchase.CreateRequest {
	date := r.Date.Time
	if date.IsZero() {
		date = now
	}
	return purchase.CreateRequest{
		SupplierTaxID:  r.SupplierTaxID,
		SupplierName:   r.SupplierName,
		SupplierNCF:    r.SupplierNCF,
		ModifiedNCF:    r.ModifiedNCF,
		ExpenseType:    purchase.ExpenseType(r.ExpenseType),
		Date:           date,
		PaymentDate:    r.PaymentDate.Ptr(),
		ServicesAmount: r.ServicesAmount,
		GoodsAmount:    r.GoodsAmount,
		ITBIS:          r.ITBIS,
		ITBISWithheld:  r.ITBISWithheld,
		ISRWithheld:    r.ISRWithheld,
		PaymentMethod:  purchase.PaymentMethod(r.PaymentMethod),
		Comment:        r.Comment,
	}
}

// PurchaseResponse is a recorded purchase.
type PurchaseResponse struct {
	ID                 string          `json:"id"`
	SupplierTaxID      string          `json:"supplierTaxId"`
	SupplierName       string          `json:"supplierName,omitempty"`
	SupplierNCF        string          `json:"supplierNcf"`
	ModifiedNCF        string          `json:"modifiedNcf,omitempty"`
	ExpenseType        string          `json:"expenseType"`
	ExpenseDescription string          `json:"expenseDescription"`
	Date               Date            `json:"date"`
	PaymentDate        *Date           `json:"paymentDate,omitempty"`
	ServicesAmount     decimal.Decimal `json:"servicesAmount"`
	GoodsAmount        decimal.Decimal `json:"goodsAmount"`
	Total              decimal.Decimal `json:"total"`
	ITBIS              decimal.Decimal `json:"itbis"`
	ITBISWithheld      decimal.Decimal `json:"itbisWithheld"`
	ISRWithheld        decimal.Decimal `json:"isrWithheld"`
	PaymentMethod      string          `json:"paymentMethod,omitempty"`
	Comment            string          `json:"comment,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// FromPurchase creates a response from the domain record.
func FromPurchase(p *purchase.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:                 p.ID.String(),
		SupplierTaxID:      p.SupplierTaxID,
		SupplierName:       p.SupplierName,
		SupplierNCF:        p.SupplierNCF,
		ModifiedNCF:        p.ModifiedNCF,
		ExpenseType:        string(p.ExpenseType),
		ExpenseDescription: p.ExpenseType.Description(),
		Date:               DateOf(p.Date),
		PaymentDate:        DatePtr(p.PaymentDate),
		ServicesAmount:     p.ServicesAmount,
		GoodsAmount:        p.GoodsAmount,
		Total:              p.Total(),
		ITBIS:              p.ITBIS,
		ITBISWithheld:      p.ITBISWithheld,
		ISRWithheld:        p.ISRWithheld,
		PaymentMethod:      string(p.PaymentMethod),
		Comment:            p.Comment,
		CreatedAt:          p.CreatedAt,
	}
}
