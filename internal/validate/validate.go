// Package validate provides the string predicates used to vet master data and
// invoice input before anything is written to a worksheet.
package validate

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// Required reports whether v has any non-whitespace content.
func Required(v string) bool {
	return strings.TrimSpace(v) != ""
}

// Email reports whether v looks like local@domain.tld.
func Email(v string) bool {
	return emailPattern.MatchString(strings.TrimSpace(v))
}

// Phone reports whether v is 7 to 15 digits with an optional leading "+".
func Phone(v string) bool {
	return phonePattern.MatchString(strings.TrimSpace(v))
}

// Numeric reports whether v parses as a float.
func Numeric(v string) bool {
	_, err := parseFloat(v)
	return err == nil
}

// Currency reports whether v parses as a float once "$" and "," are removed.
func Currency(v string) bool {
	_, err := parseFloat(normalizeCurrency(v))
	return err == nil
}

// Percentage reports whether v parses as a float once "%" is removed.
func Percentage(v string) bool {
	_, err := parseFloat(strings.TrimSpace(strings.ReplaceAll(v, "%", "")))
	return err == nil
}

// Unique reports whether value is absent from the given column values.
func Unique(column []string, value string) bool {
	return !slices.Contains(column, value)
}

// ParseCurrency normalizes a currency string such as "$1,234.50" into a decimal.
func ParseCurrency(v string) (decimal.Decimal, error) {
	f, err := parseFloat(normalizeCurrency(v))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

// FormatCurrency renders an amount the way the worksheets store it: "$1234.50".
func FormatCurrency(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// ParsePercentage parses "12.5", "12.5%" or "1,2.5%" (commas dropped) into a decimal.
func ParsePercentage(v string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.ReplaceAll(v, "%", ""), ",", "")
	f, err := parseFloat(strings.TrimSpace(clean))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

// FormatPercentage renders a percentage as "%.2f%%".
func FormatPercentage(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// Confirmed reports whether the typed deletion confirmation matches "delete".
func Confirmed(typed string) bool {
	return strings.EqualFold(typed, "delete")
}

func normalizeCurrency(v string) string {
	v = strings.ReplaceAll(v, "$", "")
	v = strings.ReplaceAll(v, ",", "")
	return strings.TrimSpace(v)
}

// parseFloat accepts what a float() call on a trimmed string would: surrounding
// whitespace is ignored, an empty string is not a number.
// ErrNotFinite rejects "NaN", "Inf" and friends, which ParseFloat accepts but
// no amount can hold.
var ErrNotFinite = errors.New("value is not a finite number")

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q: %w", v, ErrNotFinite)
	}
	return f, nil
}
