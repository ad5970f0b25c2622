// Package sequence mints registration and membership identifiers.
//
// Registration numbers are drawn independently per call and are not checked
// against existing rows. Membership numbers are serial per prefix: the
// current maximum is read inside the caller's transaction with a row lock so
// concurrent allocations for the same prefix serialize.
package sequence

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/boa-platform/registration-ledger/internal/domain"
)

// Querier is satisfied by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RegistrationNumber returns REG-<year>-<4 digit random>.
func RegistrationNumber(now time.Time) string {
	return fmt.Sprintf("REG-%d-%04d", now.Year(), rand.IntN(10000))
}

// NextMembershipNo classifies membershipType into a prefix and allocates the
// next serial for it. The read and the caller's subsequent write must share
// one transaction.
func NextMembershipNo(ctx context.Context, q Querier, membershipType string) (string, error) {
	prefix := domain.MembershipPrefix(membershipType)

	// The suffix match is anchored to digits so that ST never picks up STD
	// numbers, and the ordering is length-first so LM1000 sorts above LM999.
	var current string
	err := q.QueryRow(ctx, `
		SELECT membership_no FROM users
		WHERE membership_no ~ ('^' || $1 || '[0-9]+$')
		ORDER BY length(membership_no) DESC, membership_no DESC LIMIT 1
		FOR UPDATE
	`, prefix).Scan(&current)
	if err == pgx.ErrNoRows {
		return domain.FormatMembershipNo(prefix, 1), nil
	}
	if err != nil {
		return "", err
	}

	serial, err := strconv.Atoi(strings.TrimPrefix(current, prefix))
	if err != nil {
		serial = 0
	}
	return domain.FormatMembershipNo(prefix, serial+1), nil
}
