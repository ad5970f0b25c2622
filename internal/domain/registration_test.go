package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelegateType(t *testing.T) {
	cases := []struct {
		in   string
		want DelegateType
	}{
		{"boa-member", DelegateBOAMember},
		{"BOA Member", DelegateBOAMember},
		{"  Boa   Member ", DelegateBOAMember},
		{"B O A Member", DelegateBOAMember},
		{"Non BOA Member", DelegateNonBOAMember},
		{"non-boa-member", DelegateNonBOAMember},
		{"Accompanying Person", DelegateAccompanying},
	}
	for _, tc := range cases {
		got, err := ParseDelegateType(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseDelegateTypeRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "vip", "board member"} {
		_, err := ParseDelegateType(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func TestTotalAmount(t *testing.T) {
	total, err := TotalAmount("2000", []string{"1000"})
	require.NoError(t, err)
	assert.Equal(t, "3000.00", total.StringFixed(2))

	// Decimal inputs must not lose precision.
	total, err = TotalAmount("1999.99", []string{"0.01", "500.50"})
	require.NoError(t, err)
	assert.Equal(t, "2500.50", total.StringFixed(2))

	total, err = TotalAmount("500", nil)
	require.NoError(t, err)
	assert.Equal(t, "500.00", total.StringFixed(2))
}

func TestTotalAmountRejectsMalformed(t *testing.T) {
	_, err := TotalAmount("abc", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = TotalAmount("100", []string{"ten"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
