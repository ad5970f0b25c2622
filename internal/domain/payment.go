package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusVerified PendingStatus = "verified"
)

// PendingPayment is a membership payment awaiting out-of-band confirmation.
// The payload is persisted as a membership registration once a poll observes
// the verified flag.
type PendingPayment struct {
	TransactionID string
	Amount        decimal.Decimal
	Payload       MembershipApplication
	Status        PendingStatus
	GatewayRef    string
	CreatedAt     time.Time
	VerifiedAt    *time.Time
}

// MembershipApplication is the user-supplied payload held until the payment
// confirms.
type MembershipApplication struct {
	UserID         string `json:"user_id"`
	MembershipType string `json:"membership_type"`
}
