package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"swandns/internal/errs"
)

func TestValidateDataEnforcesAddressFamily(t *testing.T) {
	assert.NoError(t, ValidateData(TypeA, "127.0.0.1"))
	assert.NoError(t, ValidateData(TypeAAAA, "::1"))

	err := ValidateData(TypeA, "::1")
	assert.Error(t, err)
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))

	err = ValidateData(TypeAAAA, "127.0.0.1")
	assert.Error(t, err)

	err = ValidateData(TypeA, "not-an-ip")
	assert.Error(t, err)
}

func TestNormalizeNameStripsTrailingDotAndLowercases(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeName("Example.com."))
	assert.Equal(t, "example.com", NormalizeName("example.com"))
}

func TestHealthyWithinSevenMinutes(t *testing.T) {
	now := time.Now().UTC()
	r := Record{UpdatedAt: now.Add(-6 * time.Minute)}
	assert.True(t, r.Healthy(now))

	r.UpdatedAt = now.Add(-8 * time.Minute)
	assert.False(t, r.Healthy(now))
}

func TestParseTypeRejectsUnsupported(t *testing.T) {
	_, err := ParseType("A")
	assert.NoError(t, err)
	_, err = ParseType("CNAME")
	assert.Error(t, err)
}
