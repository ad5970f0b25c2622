package sequence

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^REG-2026-\d{4}$`)
	for i := 0; i < 100; i++ {
		no := RegistrationNumber(now)
		assert.Regexp(t, pattern, no)
	}
}
