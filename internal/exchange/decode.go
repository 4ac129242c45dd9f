package exchange

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DecodeJSON decodes body into v keeping numbers as json.Number.
func DecodeJSON(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Text renders a scalar JSON value as a string. Nil and non-scalars give "".
func Text(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// StringPtr returns a pointer to the text of v, or nil when it is empty.
func StringPtr(v interface{}) *string {
	s := Text(v)
	if s == "" {
		return nil
	}
	return &s
}

// Str returns a pointer to s
func Str(s string) *string {
	return &s
}

// ParseDecimal parses a decimal value from a JSON scalar.
func ParseDecimal(v interface{}) (decimal.Decimal, bool) {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DecimalPtr normalizes a decimal value ("0.00100000" becomes "0.001").
// Empty values give nil; unparseable values are passed through unchanged.
func DecimalPtr(v interface{}) *string {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return &s
	}
	out := d.String()
	return &out
}

// DecimalString renders d in normalized form
func DecimalString(d decimal.Decimal) *string {
	s := d.String()
	return &s
}

// Int64Ptr parses an integer timestamp. Fractional values are truncated.
func Int64Ptr(v interface{}) *int64 {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int64(f)
	return &n
}

// SecondsToMillis converts a seconds value, possibly fractional, into milliseconds.
func SecondsToMillis(v interface{}) *int64 {
	d, ok := ParseDecimal(v)
	if !ok {
		return nil
	}
	n := d.Mul(decimal.NewFromInt(1000)).IntPart()
	return &n
}

// BoolPtr accepts JSON booleans and the strings "true"/"false". Anything else gives nil.
func BoolPtr(v interface{}) *bool {
	switch x := v.(type) {
	case bool:
		return &x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}
