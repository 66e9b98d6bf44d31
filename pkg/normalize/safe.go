package normalize

import (
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/core"
)

// Safe getters read loosely-typed payload fields without panicking. Every
// backend shapes its JSON differently; the two-key variants cover the usual
// pairs of competing names ("amount"/"volume", "timestamp"/"time").

// SafeString returns the string under key, or def when absent or not
// string-like. Numbers are rendered, other types are ignored.
func SafeString(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return def
}

// SafeString2 tries key1 then key2.
func SafeString2(m map[string]any, key1, key2, def string) string {
	if s := SafeString(m, key1, ""); s != "" {
		return s
	}
	return SafeString(m, key2, def)
}

// SafeDecimal returns the decimal under key, nil when absent or unparseable.
func SafeDecimal(m map[string]any, key string) *apd.Decimal {
	if m == nil {
		return nil
	}
	return core.ParseDecimal(m[key])
}

// SafeDecimal2 tries key1 then key2.
func SafeDecimal2(m map[string]any, key1, key2 string) *apd.Decimal {
	if d := SafeDecimal(m, key1); d != nil {
		return d
	}
	return SafeDecimal(m, key2)
}

// SafeInt returns the integer under key, def when absent or unparseable.
func SafeInt(m map[string]any, key string, def int64) int64 {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// SafeInt2 tries key1 then key2.
func SafeInt2(m map[string]any, key1, key2 string, def int64) int64 {
	if m != nil {
		if _, ok := m[key1]; ok {
			return SafeInt(m, key1, def)
		}
	}
	return SafeInt(m, key2, def)
}

// SafeBool returns the bool under key, def otherwise. "true"/"false" strings
// and 0/1 numbers count.
func SafeBool(m map[string]any, key string, def bool) bool {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// SafeMap returns the object under key, nil otherwise.
func SafeMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// SafeSlice returns the array under key, nil otherwise.
func SafeSlice(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

// SafeTimeMillis reads a millisecond timestamp under key. Second-precision
// values are scaled up; ISO 8601 strings are parsed. The zero time marks an
// absent or unreadable field.
func SafeTimeMillis(m map[string]any, key string) time.Time {
	if m == nil {
		return time.Time{}
	}
	switch v := m[key].(type) {
	case float64:
		return fromEpoch(int64(v))
	case int64:
		return fromEpoch(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromEpoch(n)
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// SafeTimeMillis2 tries key1 then key2.
func SafeTimeMillis2(m map[string]any, key1, key2 string) time.Time {
	if t := SafeTimeMillis(m, key1); !t.IsZero() {
		return t
	}
	return SafeTimeMillis(m, key2)
}

func fromEpoch(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	// Anything below ~Sep 2001 in millis is a second-precision stamp.
	if n < 1e12 {
		n *= 1000
	}
	return time.UnixMilli(n).UTC()
}
