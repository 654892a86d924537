package nodert

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrDivisionByZero is returned by Div.
var ErrDivisionByZero = errors.New("division by zero")

// Div divides a by b.
func Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

// Compare applies a comparison operator to two numbers.
func Compare(op string, a, b float64) (bool, error) {
	switch op {
	case "eq":
		return a == b, nil
	case "ne":
		return a != b, nil
	case "lt":
		return a < b, nil
	case "le":
		return a <= b, nil
	case "gt":
		return a > b, nil
	case "ge":
		return a >= b, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}
}

// And evaluates both operands, unlike &&.
func And(a, b bool) bool { return a && b }

// Or evaluates both operands, unlike ||.
func Or(a, b bool) bool { return a || b }

// Concat joins two strings.
func Concat(a, b string) string { return a + b }

// FormatNumber renders integral values without a fraction and everything
// else in the shortest form that round-trips.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToString returns the display form of a value.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(x)
	}
}

// ParseNumber parses the text form of a finite number.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot parse %q as a finite number", s)
	}
	return f, nil
}

// ParseBool parses "true" or "false" and the other forms strconv accepts.
func ParseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("cannot parse %q as a bool", s)
	}
	return b, nil
}

// AsString asserts that a dynamic value is a string.
func AsString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("cannot use %s as a string", describe(v))
}

// AsNumber asserts that a dynamic value is a number.
func AsNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("cannot use %s as a number", describe(v))
}

// AsBool asserts that a dynamic value is a bool.
func AsBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot use %s as a bool", describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
