package core

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// ParseDecimal converts a raw JSON value into a decimal, tolerating the
// encodings backends actually emit: strings, numbers, json.Number, and
// integer types. It returns nil (the explicit unknown marker) for absent,
// null, empty, or unparseable input rather than failing.
func ParseDecimal(v any) *apd.Decimal {
	switch val := v.(type) {
	case nil:
		return nil
	case *apd.Decimal:
		return val
	case string:
		return decimalFromString(val)
	case json.Number:
		return decimalFromString(val.String())
	case float64:
		return decimalFromString(strconv.FormatFloat(val, 'f', -1, 64))
	case float32:
		return decimalFromString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case int:
		return apd.New(int64(val), 0)
	case int64:
		return apd.New(val, 0)
	default:
		return nil
	}
}

func decimalFromString(s string) *apd.Decimal {
	if s == "" {
		return nil
	}
	d := new(apd.Decimal)
	if _, _, err := apd.BaseContext.SetString(d, s); err != nil {
		return nil
	}
	return d
}

// MustDecimal parses a decimal literal known to be valid. It is intended for
// static values such as fee rates in backend definitions.
func MustDecimal(s string) *apd.Decimal {
	d := decimalFromString(s)
	if d == nil {
		panic("core: invalid decimal literal " + strconv.Quote(s))
	}
	return d
}

// DecAdd returns a+b, or nil if either operand is unknown.
func DecAdd(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil {
		return nil
	}
	out := new(apd.Decimal)
	if _, err := apd.BaseContext.Add(out, a, b); err != nil {
		return nil
	}
	return out
}

// DecSub returns a-b, or nil if either operand is unknown.
func DecSub(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil {
		return nil
	}
	out := new(apd.Decimal)
	if _, err := apd.BaseContext.Sub(out, a, b); err != nil {
		return nil
	}
	return out
}

// DecMul returns a*b, or nil if either operand is unknown.
func DecMul(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil {
		return nil
	}
	out := new(apd.Decimal)
	if _, err := apd.BaseContext.Mul(out, a, b); err != nil {
		return nil
	}
	return out
}

// DecEqual reports whether a and b are both unknown or numerically equal.
func DecEqual(a, b *apd.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// DecString renders a decimal, with "" for unknown.
func DecString(d *apd.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Text('f')
}
