package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Stringify renders a value the way it would appear in a compiled prompt.
// Slices join with comma+space; nil renders empty.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ToInt coerces a value to an integer, returning the fallback when the
// value does not parse.
func ToInt(v any, fallback int) int {
	switch t := v.(type) {
	case nil:
		return fallback
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
		return fallback
	default:
		return fallback
	}
}

// Truthy reports whether a value coerces to boolean true. Strings are true
// for "true", "1", "yes" and "on" (case-insensitive); numbers when non-zero.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	default:
		return Stringify(t) != ""
	}
}

// IsEmpty reports whether a value stringifies to the empty string.
func IsEmpty(v any) bool {
	return strings.TrimSpace(Stringify(v)) == ""
}
