// Package types provides money helpers shared by documents and reports.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyPlaces is the number of fractional digits stored for amounts.
const MoneyPlaces = 2

// ITBIS rates in percent.
var (
	ITBISStandard = decimal.NewFromInt(18)
	ITBISReduced  = decimal.NewFromInt(16)
	ITBISExempt   = decimal.Zero
)

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round rounds half away from zero to MoneyPlaces.
func Round(m Money) Money {
	return m.Round(MoneyPlaces)
}

// TaxOf returns base * rate% rounded to cents.
func TaxOf(base Money, ratePercent decimal.Decimal) Money {
	return Round(base.Mul(ratePercent).Div(hundred))
}

// ValidateTaxRate accepts only the ITBIS rates in force.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.Equal(ITBISStandard) || rate.Equal(ITBISReduced) || rate.IsZero() {
		return nil
	}
	return fmt.Errorf("unsupported ITBIS rate %s", rate.String())
}
