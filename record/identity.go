package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Key returns the canonical identity of an id value. Numbers and numeric
// strings with the same value share the same key, so 1 and "1" address the
// same record.
func Key(id any) (string, bool) {
	switch v := id.(type) {
	case nil:
		return "", false
	case string:
		if f, ok := parseNumber(v); ok {
			return formatNumber(f), true
		}
		return v, true
	}

	if f, ok := toNumber(id); ok {
		return formatNumber(f), true
	}

	return fmt.Sprint(id), true
}

// NumericID interprets an id the way an integer prefix parser would:
// "12abc" is 12, 3.7 is 3 and "abc" is not numeric at all.
func NumericID(id any) (float64, bool) {
	switch v := id.(type) {
	case string:
		return parseIntPrefix(v)
	case json.Number:
		return parseIntPrefix(string(v))
	case bool:
		return 0, false
	}

	f, ok := toNumber(id)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Trunc(f), true
}

// Loose reports whether a and b are equal allowing coercion between numbers,
// numeric strings and booleans. Two strings are only equal when identical.
func Loose(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	sa, aIsString := a.(string)
	sb, bIsString := b.(string)
	if aIsString && bIsString {
		return sa == sb
	}

	if reflect.DeepEqual(a, b) {
		return true
	}

	fa, ok := coerce(a)
	if !ok {
		return false
	}
	fb, ok := coerce(b)
	if !ok {
		return false
	}

	return fa == fb
}

func coerce(v any) (float64, bool) {
	switch value := v.(type) {
	case string:
		return parseNumber(value)
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	}
	return toNumber(v)
}

func toNumber(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int8:
		return float64(value), true
	case int16:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint:
		return float64(value), true
	case uint8:
		return float64(value), true
	case uint16:
		return float64(value), true
	case uint32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseIntPrefix(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
