// Package config holds the value coercion shared by the config stores.
// TOML decodes integers as int64 and callers may Set ints, floats,
// durations or strings, so every store reads values through these helpers.
package config

import (
	"strconv"
	"time"
)

// String returns v as a string. Durations render in their parseable form.
func String(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Duration:
		return x.String()
	default:
		return ""
	}
}

// Int returns v as an int when it holds any integer type.
func Int(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case int32:
		return int(x)
	default:
		return 0
	}
}

// Float returns v as a float64. Integers and numeric strings convert;
// ok is false for anything else.
func Float(v any) (f float64, ok bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns v when it is a bool.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}
