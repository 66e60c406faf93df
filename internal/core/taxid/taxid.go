// Package taxid validates Dominican taxpayer identifiers: the 9-digit RNC
// issued to legal entities and the 11-digit Cédula used by individuals.
package taxid

import "strings"

// Kind is the identifier family.
type Kind int

const (
	KindUnknown Kind = iota
	KindRNC
	KindCedula
)

// String returns the DGII name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRNC:
		return "RNC"
	case KindCedula:
		return "Cédula"
	}
	return "unknown"
}

// ReportCode is the identification type column of the 606/607 formats.
func (k Kind) ReportCode() string {
	switch k {
	case KindRNC:
		return "1"
	case KindCedula:
		return "2"
	}
	return "3"
}

const (
	rncLength    = 9
	cedulaLength = 11
)

var rncWeights = [rncLength - 1]int{7, 9, 8, 6, 5, 4, 3, 2}

// acceptedRNCs are registered identifiers that are accepted even though their
// check digit does not match the checksum.
var acceptedRNCs = map[string]struct{}{
	"131888444": {},
}

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// Validate reports whether raw is a well-formed RNC or Cédula.
// Separators are ignored; any length other than 9 or 11 digits is invalid.
func Validate(raw string) bool {
	return Classify(raw) != KindUnknown
}

// Classify returns the kind of a valid identifier, or KindUnknown when the
// identifier has the wrong length or fails its checksum.
func Classify(raw string) Kind {
	digits := Normalize(raw)
	switch len(digits) {
	case rncLength:
		if _, ok := acceptedRNCs[digits]; ok || validRNC(digits) {
			return KindRNC
		}
	case cedulaLength:
		if validCedula(digits) {
			return KindCedula
		}
	}
	return KindUnknown
}

func validRNC(d string) bool {
	sum := 0
	for i, w := range rncWeights {
		sum += int(d[i]-'0') * w
	}

	var check int
	switch r := sum % 11; r {
	case 0:
		check = 2
	case 1:
		check = 1
	default:
		check = 11 - r
	}
	return int(d[rncLength-1]-'0') == check
}

func validCedula(d string) bool {
	sum := 0
	for i := 0; i < cedulaLength-1; i++ {
		p := int(d[i] - '0')
		if i%2 == 1 {
			p *= 2
		}
		if p > 9 {
			p = p/10 + p%10
		}
		sum += p
	}
	check := (10 - sum%10) % 10
	return int(d[cedulaLength-1]-'0') == check
}
