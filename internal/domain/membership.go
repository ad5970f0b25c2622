package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	MembershipType string
	MembershipNo   string
	IsBOAMember    bool
}

// MembershipRegistration is the durable record created when an out-of-band
// membership payment is confirmed.
type MembershipRegistration struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	MembershipType string
	MembershipNo   string
	Amount         decimal.Decimal
	GatewayRef     string
	Status         PaymentStatus
}

// membershipPrefixes is checked in order: LIFETIME contains LIFE and
// 5-YEARLY contains YEARLY, so first match wins.
var membershipPrefixes = []struct {
	substrings []string
	prefix     string
}{
	{[]string{"LIFETIME", "LIFE"}, "LM"},
	{[]string{"5-YEARLY", "5 YEARLY", "5YEARLY"}, "5YL"},
	{[]string{"YEARLY", "ANNUAL"}, "YL"},
	{[]string{"STUDENT"}, "ST"},
	{[]string{"HONORARY"}, "HN"},
}

// MembershipPrefix classifies free membership-type text into the number
// prefix for that class. Unrecognized types fall back to STD.
func MembershipPrefix(membershipType string) string {
	upper := strings.ToUpper(membershipType)
	for _, p := range membershipPrefixes {
		for _, sub := range p.substrings {
			if strings.Contains(upper, sub) {
				return p.prefix
			}
		}
	}
	return "STD"
}

// FormatMembershipNo renders a membership number from its prefix and serial,
// e.g. LM007.
func FormatMembershipNo(prefix string, serial int) string {
	return fmt.Sprintf("%s%03d", prefix, serial)
}
