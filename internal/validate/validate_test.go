package validate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"juan@campo.mx", true},
		{"  juan.perez@campo.com.mx  ", true},
		{"a@b.c", true},
		{"juancampo.mx", false},
		{"juan perez@campo.mx", false},
		{"juan@@campo.mx", false},
		{"juan@campo@mx.com", false},
		{"juan@campo", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.input))
		})
	}
}

func TestPhone(t *testing.T) {
	for n := 7; n <= 15; n++ {
		digits := strings.Repeat("5", n)
		assert.True(t, Phone(digits), "length %d", n)
		assert.True(t, Phone("+"+digits), "length %d with plus", n)
	}

	assert.False(t, Phone(strings.Repeat("5", 6)))
	assert.False(t, Phone(strings.Repeat("5", 16)))
	assert.False(t, Phone("+"+strings.Repeat("5", 16)))
	assert.False(t, Phone("614-555-1234"))
	assert.False(t, Phone("++6145551234"))
	assert.True(t, Phone(" 6145551234 "))
}

func TestNumericCurrencyPercentage(t *testing.T) {
	assert.True(t, Numeric("2"))
	assert.True(t, Numeric(" 2.5 "))
	assert.True(t, Numeric("-1e3"))
	assert.False(t, Numeric(""))
	assert.False(t, Numeric("$2"))
	assert.False(t, Numeric("dos"))

	assert.True(t, Currency("$1,234.50"))
	assert.True(t, Currency("0"))
	assert.False(t, Currency("abc"))
	assert.False(t, Currency("$"))

	assert.True(t, Percentage("12.5%"))
	assert.True(t, Percentage("7"))
	assert.False(t, Percentage("siete%"))
}

func TestParseCurrency(t *testing.T) {
	d, err := ParseCurrency("$1,234.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1234.50")))
	assert.Equal(t, "$1234.50", FormatCurrency(d))

	_, err = ParseCurrency("abc")
	assert.Error(t, err)
}

func TestNonFiniteValues(t *testing.T) {
	tests := []struct {
		parse func(string) (decimal.Decimal, error)
		valid func(string) bool
		name  string
		value string
	}{
		{name: "numeric NaN", value: "NaN", valid: Numeric, parse: ParseCurrency},
		{name: "currency inf", value: "inf", valid: Currency, parse: ParseCurrency},
		{name: "currency $Infinity", value: "$Infinity", valid: Currency, parse: ParseCurrency},
		{name: "currency -Inf", value: "-Inf", valid: Currency, parse: ParseCurrency},
		{name: "percentage NaN%", value: "NaN%", valid: Percentage, parse: ParsePercentage},
		{name: "percentage +infinity%", value: "+infinity%", valid: Percentage, parse: ParsePercentage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.valid(tt.value))
			assert.NotPanics(t, func() {
				_, err := tt.parse(tt.value)
				assert.ErrorIs(t, err, ErrNotFinite)
			})
		})
	}
}

func TestPercentageFormatting(t *testing.T) {
	d, err := ParsePercentage("12.5%")
	require.NoError(t, err)
	assert.Equal(t, "12.50%", FormatPercentage(d))
}

func TestUnique(t *testing.T) {
	col := []string{"A1", "B2", "7"}
	assert.False(t, Unique(col, "A1"))
	assert.False(t, Unique(col, fmt.Sprint(7)))
	assert.True(t, Unique(col, "C3"))
	assert.True(t, Unique(nil, "C3"))
}

func TestConfirmed(t *testing.T) {
	assert.True(t, Confirmed("delete"))
	assert.True(t, Confirmed("DELETE"))
	assert.False(t, Confirmed("borrar"))
	assert.False(t, Confirmed(""))
}

type contact struct {
	Name  string `col:"Agricultor" validate:"notblank"`
	Email string `col:"Email" validate:"omitempty,email_loose"`
	Phone string `col:"Telefono" validate:"omitempty,phone"`
	Price string `col:"Precio" validate:"omitempty,currency"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(contact{Name: "Juan", Email: "juan@campo.mx", Phone: "+526145551234", Price: "$2.00"}))
	require.NoError(t, Struct(contact{Name: "Juan"}))

	err := Struct(contact{Name: "  "})
	assert.ErrorIs(t, err, common.ErrMissingField)
	assert.Contains(t, err.Error(), "Agricultor")

	err = Struct(contact{Name: "Juan", Phone: "123"})
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "Telefono")

	err = Struct(contact{Name: "Juan", Price: "mucho"})
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "Precio")
}
