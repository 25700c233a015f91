package records

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/shopspring/decimal"
)

// Cell formats selected with the second element of a `col` tag.
const (
	FormatCurrency = "currency" // decimal as "$1234.50"
	FormatPercent  = "percent"  // decimal as "12.50%"
	FormatFloat    = "float"    // decimal as a float literal: "6.0", "6.25"
	FormatDate     = "date"     // time as "2006-01-02"
	FormatDateTime = "datetime" // time as "2006-01-02 15:04:05"
)

// Date layouts accepted when decoding. Slashed dates are day first, as typed
// in the sheets; "2" and "1" also take zero-padded days and months.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2/1/2006",
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

type field struct {
	column string
	format string
	index  int
}

func fieldsOf(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("col")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		name, format, _ := strings.Cut(tag, ",")
		out = append(out, field{column: name, format: format, index: i})
	}
	return out
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("records: %T is not a struct", v)
	}
	return rv, nil
}

// Columns returns the `col` names of a tagged struct in declaration order.
// It is the default header used when a worksheet is created.
func Columns(v any) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := fieldsOf(t)
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

// Formats maps each formatted column of a tagged struct to its cell format.
func Formats(v any) map[string]string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make(map[string]string)
	for _, f := range fieldsOf(t) {
		if f.format != "" {
			out[f.column] = f.format
		}
	}
	return out
}

// Encode converts a `col`-tagged struct into a Record.
func Encode(v any) (Record, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}

	rec := make(Record)
	for _, f := range fieldsOf(rv.Type()) {
		s, err := encodeValue(rv.Field(f.index), f.format)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.column, err)
		}
		rec[f.column] = s
	}
	return rec, nil
}

// Decode fills the `col`-tagged struct pointed to by out from rec. Blank cells
// decode to the zero value; malformed cells fail with common.ErrInvalidFormat.
func Decode(rec Record, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("records: Decode needs a non-nil pointer, got %T", out)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("records: %T is not a struct pointer", out)
	}

	for _, f := range fieldsOf(rv.Type()) {
		raw := strings.TrimSpace(rec[f.column])
		if err := decodeValue(rv.Field(f.index), raw); err != nil {
			return &common.FieldError{Kind: common.ErrInvalidFormat, Field: f.column, Detail: raw}
		}
	}
	return nil
}

// DecodeAll decodes every record of a snapshot into a slice of T.
func DecodeAll[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, snap.Len())
	for i, rec := range snap.Records {
		var v T
		if err := Decode(rec, &v); err != nil {
			return nil, fmt.Errorf("row %d: %w", RowNumber(i), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeValue(v reflect.Value, format string) (string, error) {
	switch v.Type() {
	case decimalType:
		d, _ := v.Interface().(decimal.Decimal)
		return formatDecimal(d, format), nil
	case timeType:
		t, _ := v.Interface().(time.Time)
		if t.IsZero() {
			return "", nil
		}
		if format == FormatDateTime {
			return t.Format("2006-01-02 15:04:05"), nil
		}
		return t.Format("2006-01-02"), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Bool:
		if v.Bool() {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("unsupported field type %s", v.Type())
	}
}

func formatDecimal(d decimal.Decimal, format string) string {
	switch format {
	case FormatCurrency:
		return "$" + d.StringFixed(2)
	case FormatPercent:
		return d.StringFixed(2) + "%"
	case FormatFloat:
		return FloatString(d)
	default:
		return d.String()
	}
}

// FloatString renders d the way a float literal prints: integral values keep
// one decimal place ("6.0"), others print their shortest form ("6.25").
func FloatString(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(1)
	}
	return d.String()
}

func decodeValue(v reflect.Value, raw string) error {
	switch v.Type() {
	case decimalType:
		d, err := parseDecimal(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(d))
		return nil
	case timeType:
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		if raw == "" {
			v.SetInt(0)
			return nil
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			v.SetInt(n)
			return nil
		}
		// Numeric cells may come back as "12.0"; anything with a fraction is not
		// an integer.
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || v.OverflowInt(int64(f)) {
			return fmt.Errorf("%q is not an integer", raw)
		}
		v.SetInt(int64(f))
	case reflect.Bool:
		switch strings.ToLower(raw) {
		case "true", "1", "si", "sí", "verdadero":
			v.SetBool(true)
		default:
			v.SetBool(false)
		}
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", "%", "").Replace(raw)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(clean)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
