// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedRef PortRef
	}{
		{
			name:        "simple reference",
			raw:         "12.value",
			expectedRef: Ref(12, "value"),
		},
		{
			name:        "underscore port",
			raw:         "3.then_0",
			expectedRef: Ref(3, "then_0"),
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - missing port",
			raw:       "12",
			expectErr: true,
		},
		{
			name:      "error - zero node",
			raw:       "0.value",
			expectErr: true,
		},
		{
			name:      "error - negative node",
			raw:       "-1.value",
			expectErr: true,
		},
		{
			name:      "error - nested path",
			raw:       "1.a.b",
			expectErr: true,
		},
		{
			name:      "error - port starts with digit",
			raw:       "1.0a",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := ParseRef(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedRef, ref)
		})
	}
}

func TestPortRef_RoundTrip(t *testing.T) {
	for _, raw := range []string{"1.out", "42.value", "1000.then_12"} {
		t.Run(raw, func(t *testing.T) {
			ref, err := ParseRef(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, ref.String())
		})
	}
}

func TestPortRef_Zero(t *testing.T) {
	assert.True(t, PortRef{}.IsZero())
	assert.Equal(t, "", PortRef{}.String())
	assert.False(t, Ref(1, "in").IsZero())
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, ID(17), id)
	assert.True(t, id.IsValid())

	_, err = ParseID("0")
	assert.Error(t, err)
	_, err = ParseID("x")
	assert.Error(t, err)
	assert.False(t, None.IsValid())
}
