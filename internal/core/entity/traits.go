package entity

import (
	"context"

	"facturard/internal/core/apperror"
)

// Supported document currencies.
const (
	CurrencyDOP = "DOP"
	CurrencyUSD = "USD"
)

// CurrencyAware is a trait for documents that carry a currency code.
type CurrencyAware struct {
	Currency string `db:"currency" json:"currency"`
}

// ValidateCurrency defaults an empty currency to DOP and rejects unknown codes.
func (c *CurrencyAware) ValidateCurrency(ctx context.Context) error {
	switch c.Currency {
	case "":
		c.Currency = CurrencyDOP
	case CurrencyDOP, CurrencyUSD:
	default:
		return apperror.NewValidation("unsupported currency").
			WithDetail("field", "currency").
			WithDetail("value", c.Currency)
	}
	return nil
}
