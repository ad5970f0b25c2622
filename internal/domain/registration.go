package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DelegateType string

const (
	DelegateBOAMember    DelegateType = "boa-member"
	DelegateNonBOAMember DelegateType = "non-boa-member"
	DelegateAccompanying DelegateType = "accompanying-person"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

type Registration struct {
	ID               uuid.UUID
	RegistrationNo   string
	UserID           uuid.UUID
	SeminarID        uuid.UUID
	CategoryID       uuid.UUID
	SlabID           uuid.UUID
	DelegateType     DelegateType
	Amount           decimal.Decimal
	Status           PaymentStatus
	PaymentMethod    string
	PaymentDate      *time.Time
	GatewayOrderID   string
	GatewayPaymentID string
	CreatedAt        time.Time
	Persons          []AdditionalPerson
}

type AdditionalPerson struct {
	ID             uuid.UUID
	RegistrationID uuid.UUID
	Name           string
	CategoryID     uuid.UUID
	SlabID         uuid.UUID
	Amount         decimal.Decimal
}

// ParseDelegateType folds free text into one of the delegate enum tokens:
// lower-case, trim, whitespace runs become hyphens. Hyphenation splits "BOA"
// into "b-o-a" when the input spells it out, so that sequence is collapsed
// back before matching.
func ParseDelegateType(s string) (DelegateType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.Join(strings.Fields(norm), "-")
	norm = strings.ReplaceAll(norm, "b-o-a", "boa")
	switch dt := DelegateType(norm); dt {
	case DelegateBOAMember, DelegateNonBOAMember, DelegateAccompanying:
		return dt, nil
	}
	return "", ErrInvalidInput
}

// TotalAmount is the registration's category fee plus every additional
// person's fee. Amounts arrive as strings from the gateway and the client;
// they are parsed exactly, no float conversion.
func TotalAmount(baseAmount string, personAmounts []string) (decimal.Decimal, error) {
	total, err := decimal.NewFromString(baseAmount)
	if err != nil {
		return decimal.Zero, ErrInvalidInput
	}
	for _, a := range personAmounts {
		d, err := decimal.NewFromString(a)
		if err != nil {
			return decimal.Zero, ErrInvalidInput
		}
		total = total.Add(d)
	}
	return total, nil
}
