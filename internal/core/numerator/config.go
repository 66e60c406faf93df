// Package numerator provides domain contracts for fiscal sequence (NCF) allocation.
package numerator

import (
	"fmt"
	"strconv"
)

// Series is the single-letter NCF series marker.
type Series string

const (
	// SeriesElectronic is used for e-CF documents. Numbers are padded to 10 digits.
	SeriesElectronic Series = "E"
	// SeriesTraditional is used for printed receipts. Numbers are padded to 8 digits.
	SeriesTraditional Series = "B"
)

// DocumentType is the two-digit DGII fiscal document type code.
type DocumentType string

// Electronic series document types.
const (
	TypeECreditoFiscal       DocumentType = "31"
	TypeEConsumo             DocumentType = "32"
	TypeENotaDebito          DocumentType = "33"
	TypeENotaCredito         DocumentType = "34"
	TypeECompras             DocumentType = "41"
	TypeEGastosMenores       DocumentType = "43"
	TypeERegimenesEspeciales DocumentType = "44"
	TypeEGubernamental       DocumentType = "45"
	TypeEExportaciones       DocumentType = "46"
	TypeEPagosExterior       DocumentType = "47"
)

// Traditional series document types.
const (
	TypeCreditoFiscal       DocumentType = "01"
	TypeConsumo             DocumentType = "02"
	TypeNotaDebito          DocumentType = "03"
	TypeNotaCredito         DocumentType = "04"
	TypeProveedorInformal   DocumentType = "11"
	TypeRegistroUnico       DocumentType = "12"
	TypeGastosMenores       DocumentType = "13"
	TypeRegimenesEspeciales DocumentType = "14"
	TypeGubernamental       DocumentType = "15"
	TypeExportaciones       DocumentType = "16"
	TypePagosExterior       DocumentType = "17"
)

var typesBySeries = map[Series]map[DocumentType]string{
	SeriesElectronic: {
		TypeECreditoFiscal:       "Factura de Crédito Fiscal Electrónica",
		TypeEConsumo:             "Factura de Consumo Electrónica",
		TypeENotaDebito:          "Nota de Débito Electrónica",
		TypeENotaCredito:         "Nota de Crédito Electrónica",
		TypeECompras:             "Compras Electrónico",
		TypeEGastosMenores:       "Gastos Menores Electrónico",
		TypeERegimenesEspeciales: "Regímenes Especiales Electrónico",
		TypeEGubernamental:       "Gubernamental Electrónico",
		TypeEExportaciones:       "Exportaciones Electrónico",
		TypeEPagosExterior:       "Pagos al Exterior Electrónico",
	},
	SeriesTraditional: {
		TypeCreditoFiscal:       "Factura de Crédito Fiscal",
		TypeConsumo:             "Factura de Consumo",
		TypeNotaDebito:          "Nota de Débito",
		TypeNotaCredito:         "Nota de Crédito",
		TypeProveedorInformal:   "Comprobante de Compras",
		TypeRegistroUnico:       "Registro Único de Ingresos",
		TypeGastosMenores:       "Gastos Menores",
		TypeRegimenesEspeciales: "Regímenes Especiales",
		TypeGubernamental:       "Gubernamental",
		TypeExportaciones:       "Exportaciones",
		TypePagosExterior:       "Pagos al Exterior",
	},
}

// IsValid reports whether s is a known series.
func (s Series) IsValid() bool {
	_, ok := typesBySeries[s]
	return ok
}

// PadWidth returns the number of digits the sequence number is padded to.
func (s Series) PadWidth() int {
	if s == SeriesElectronic {
		return 10
	}
	return 8
}

// CreditNoteType returns the credit note document type of the series.
func (s Series) CreditNoteType() DocumentType {
	if s == SeriesElectronic {
		return TypeENotaCredito
	}
	return TypeNotaCredito
}

// ValidFor reports whether the document type belongs to series s.
func (t DocumentType) ValidFor(s Series) bool {
	_, ok := typesBySeries[s][t]
	return ok
}

// IsCreditNote reports whether t is a credit note type of either series.
func (t DocumentType) IsCreditNote() bool {
	return t == TypeENotaCredito || t == TypeNotaCredito
}

// RequiresBuyerTaxID reports whether the buyer must be identified by RNC/Cédula.
func (t DocumentType) RequiresBuyerTaxID() bool {
	switch t {
	case TypeECreditoFiscal, TypeCreditoFiscal,
		TypeEGubernamental, TypeGubernamental,
		TypeERegimenesEspeciales, TypeRegimenesEspeciales:
		return true
	}
	return false
}

// Description returns the DGII name of the type, or "" if unknown.
func (t DocumentType) Description(s Series) string {
	return typesBySeries[s][t]
}

// SeriesOf returns the series a document type belongs to.
func SeriesOf(t DocumentType) (Series, bool) {
	for s, types := range typesBySeries {
		if _, ok := types[t]; ok {
			return s, true
		}
	}
	return "", false
}

// Render builds the sequence identifier: prefix + type + zero-padded number.
func Render(prefix Series, docType DocumentType, cursor int64) string {
	return fmt.Sprintf("%s%s%0*d", prefix, docType, prefix.PadWidth(), cursor)
}

// Identifier is a parsed NCF.
type Identifier struct {
	Series Series
	Type   DocumentType
	Number int64
}

// Parse splits an NCF into its parts. It checks shape only: series letter,
// known type for the series and exact digit count.
func Parse(s string) (Identifier, error) {
	if len(s) < 3 {
		return Identifier{}, fmt.Errorf("ncf %q: too short", s)
	}
	series := Series(s[:1])
	if !series.IsValid() {
		return Identifier{}, fmt.Errorf("ncf %q: unknown series %q", s, series)
	}
	docType := DocumentType(s[1:3])
	if !docType.ValidFor(series) {
		return Identifier{}, fmt.Errorf("ncf %q: type %s not valid for series %s", s, docType, series)
	}
	digits := s[3:]
	if len(digits) != series.PadWidth() {
		return Identifier{}, fmt.Errorf("ncf %q: expected %d digits", s, series.PadWidth())
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return Identifier{}, fmt.Errorf("ncf %q: invalid number", s)
	}
	return Identifier{Series: series, Type: docType, Number: n}, nil
}

// String renders the identifier.
func (i Identifier) String() string {
	return Render(i.Series, i.Type, i.Number)
}
