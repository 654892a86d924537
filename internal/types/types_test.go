package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		src       string
		expected  cty.Type
		expectErr bool
	}{
		{src: "string", expected: cty.String},
		{src: "number", expected: cty.Number},
		{src: "bool", expected: cty.Bool},
		{src: "any", expected: cty.DynamicPseudoType},
		{src: "list(number)", expected: cty.List(cty.Number)},
		{src: "map(string)", expected: cty.Map(cty.String)},
		{src: "object({a = string, b = number})", expected: cty.Object(map[string]cty.Type{"a": cty.String, "b": cty.Number})},
		{src: "list(any)", expectErr: true},
		{src: "tuple(string)", expectErr: true},
		{src: "float", expectErr: true},
		{src: "", expectErr: true},
		{src: "1 +", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := Parse(tc.src)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equals(got), "expected %s, got %s", tc.expected.FriendlyName(), got.FriendlyName())
		})
	}
}

func TestString_RoundTrip(t *testing.T) {
	for _, src := range []string{"string", "number", "bool", "any", "list(string)", "set(bool)", "object({a = string, b = number})"} {
		t.Run(src, func(t *testing.T) {
			ty, err := Parse(src)
			require.NoError(t, err)
			assert.Equal(t, src, String(ty))
		})
	}
	assert.Equal(t, "", String(cty.NilType))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(cty.String, cty.String))
	assert.True(t, Compatible(cty.Number, cty.DynamicPseudoType))
	assert.False(t, Compatible(cty.Number, cty.String))
	assert.False(t, Compatible(cty.DynamicPseudoType, cty.String))
}

func TestNativeConversion(t *testing.T) {
	native, err := ToNative(cty.NumberIntVal(3))
	require.NoError(t, err)
	assert.Equal(t, float64(3), native)

	native, err = ToNative(cty.ObjectVal(map[string]cty.Value{"ok": cty.True, "name": cty.StringVal("x")}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true, "name": "x"}, native)

	native, err = ToNative(cty.NullVal(cty.String))
	require.NoError(t, err)
	assert.Nil(t, native)

	back, err := FromNative(float64(2.5))
	require.NoError(t, err)
	f, err := Float(back)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	back, err = FromNative([]any{"a", true})
	require.NoError(t, err)
	assert.True(t, back.Type().IsTupleType())
}

func TestLiteral(t *testing.T) {
	testCases := []struct {
		val      cty.Value
		expected string
	}{
		{cty.StringVal("hello"), `"hello"`},
		{cty.StringVal("a\"b"), `"a\"b"`},
		{cty.NumberIntVal(3), "float64(3)"},
		{cty.NumberFloatVal(0.5), "float64(0.5)"},
		{cty.True, "true"},
		{cty.NullVal(cty.DynamicPseudoType), "nil"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			got, err := Literal(tc.val)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := Literal(cty.ListValEmpty(cty.String))
	assert.Error(t, err)
}

func TestCoerceAndZero(t *testing.T) {
	v, err := Coerce(cty.NumberIntVal(3), cty.String)
	require.NoError(t, err)
	assert.Equal(t, "3", v.AsString())

	_, err = Coerce(cty.StringVal("abc"), cty.Number)
	assert.Error(t, err)

	assert.True(t, Zero(cty.Number).RawEquals(cty.Zero))
	assert.True(t, Zero(cty.DynamicPseudoType).IsNull())
}

func TestGoType(t *testing.T) {
	got, err := GoType(cty.Number)
	require.NoError(t, err)
	assert.Equal(t, "float64", got)

	_, err = GoType(cty.List(cty.String))
	assert.Error(t, err)
}
