package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the RFC 3339 layout, with millisecond precision, used for
// instants persisted as strings.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t for storage, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// String returns a non-empty string field.
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok && s != ""
}

// OptionalString returns a string field or "" when absent.
func (d Document) OptionalString(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns a boolean field; absent or mistyped values read as false.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Decimal returns a numeric field as a decimal.
func (d Document) Decimal(key string) (decimal.Decimal, bool) {
	switch v := d[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		dec, err := decimal.NewFromString(v)
		return dec, err == nil
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Decimal{}, false
	}
}

// Time returns an instant stored either natively or as an RFC 3339 string.
func (d Document) Time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	default:
		return time.Time{}, false
	}
}

// Strings returns a list of string values, skipping non-string entries.
func (d Document) Strings(key string) []string {
	var out []string
	switch v := d[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
