package types

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Zero returns the zero value of a type: "", 0, false, or null for anything
// else.
func Zero(t cty.Type) cty.Value {
	switch {
	case t.Equals(cty.String):
		return cty.StringVal("")
	case t.Equals(cty.Number):
		return cty.Zero
	case t.Equals(cty.Bool):
		return cty.False
	default:
		return cty.NullVal(t)
	}
}

// Coerce converts v to type t using cty's conversion rules. It is used for
// declared defaults and inline literals, where `3` may need to become "3".
func Coerce(v cty.Value, t cty.Type) (cty.Value, error) {
	if t == cty.DynamicPseudoType || v.Type().Equals(t) {
		return v, nil
	}
	out, err := convert.Convert(v, t)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot use %s value as %s: %w", v.Type().FriendlyName(), String(t), err)
	}
	return out, nil
}

// ToNative converts a cty.Value to the Go value handed to host operations:
// string, float64, bool, nil, []any or map[string]any.
func ToNative(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

// FromNative converts a Go value returned by a host operation back into a
// cty.Value.
func FromNative(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case float64:
		return Number(x)
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(x))
		for _, e := range x {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		for k, e := range x {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), nil
	default:
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("cannot convert %T to a graph value: %w", v, err)
		}
		return gocty.ToCtyValue(v, ty)
	}
}

// Number wraps a float64 as a cty number, rejecting NaN which cty cannot
// represent.
func Number(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, fmt.Errorf("result is not a number")
	}
	return cty.NumberFloatVal(f), nil
}

// Float returns the float64 form of a known number value.
func Float(v cty.Value) (float64, error) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", describe(v))
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// Str returns the Go string of a known string value.
func Str(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.String) {
		return "", fmt.Errorf("expected a string, got %s", describe(v))
	}
	return v.AsString(), nil
}

// Bool returns the Go bool of a known bool value.
func Bool(v cty.Value) (bool, error) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("expected a bool, got %s", describe(v))
	}
	return v.True(), nil
}

func describe(v cty.Value) string {
	if v == cty.NilVal {
		return "no value"
	}
	if v.IsNull() {
		return "null"
	}
	return v.Type().FriendlyName()
}

// GoType returns the Go type used by generated code for a port type.
func GoType(t cty.Type) (string, error) {
	switch {
	case t == cty.DynamicPseudoType:
		return "interface{}", nil
	case t.Equals(cty.String):
		return "string", nil
	case t.Equals(cty.Number):
		return "float64", nil
	case t.Equals(cty.Bool):
		return "bool", nil
	default:
		return "", fmt.Errorf("type %s has no generated representation", String(t))
	}
}

// Literal renders a value as a Go expression of its generated type.
func Literal(v cty.Value) (string, error) {
	if v.IsNull() {
		return "nil", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("cannot render an unknown value")
	}
	switch ty := v.Type(); {
	case ty.Equals(cty.String):
		return strconv.Quote(v.AsString()), nil
	case ty.Equals(cty.Bool):
		return strconv.FormatBool(v.True()), nil
	case ty.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		if math.IsInf(f, 0) {
			return "", fmt.Errorf("cannot render an infinite number literal")
		}
		return "float64(" + strconv.FormatFloat(f, 'g', -1, 64) + ")", nil
	default:
		return "", fmt.Errorf("type %s has no literal form", String(ty))
	}
}
