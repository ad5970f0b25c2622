package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembershipPrefix(t *testing.T) {
	cases := []struct {
		membershipType string
		want           string
	}{
		{"Lifetime Member", "LM"},
		{"Life Membership", "LM"},
		{"5-Yearly", "5YL"},
		{"5 Yearly Membership", "5YL"},
		{"5yearly", "5YL"},
		{"Yearly", "YL"},
		{"Annual", "YL"},
		{"Student Member", "ST"},
		{"Honorary", "HN"},
		{"Associate", "STD"},
		{"", "STD"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MembershipPrefix(tc.membershipType), tc.membershipType)
	}
}

// LIFETIME contains LIFE and 5-YEARLY contains YEARLY; the earlier class
// must win.
func TestMembershipPrefixPriority(t *testing.T) {
	assert.Equal(t, "LM", MembershipPrefix("lifetime yearly hybrid"))
	assert.Equal(t, "5YL", MembershipPrefix("5-YEARLY plan"))
}

func TestFormatMembershipNo(t *testing.T) {
	assert.Equal(t, "LM001", FormatMembershipNo("LM", 1))
	assert.Equal(t, "5YL042", FormatMembershipNo("5YL", 42))
	assert.Equal(t, "STD1000", FormatMembershipNo("STD", 1000))
}
