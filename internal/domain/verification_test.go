package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresAtTime_RoundTrip(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 10, 0, 0, time.UTC)
	v := &VerificationCode{ExpiresAt: at.Format(time.RFC3339)}
	got, err := v.ExpiresAtTime()
	require.NoError(t, err)
	assert.True(t, got.Equal(at))
}

func TestExpiresAtTime_Malformed(t *testing.T) {
	v := &VerificationCode{ExpiresAt: "yesterday"}
	_, err := v.ExpiresAtTime()
	assert.Error(t, err)
}

func TestOutcome_MutualExclusivity(t *testing.T) {
	at := time.Now()

	delivered := DeliveredAt(at)
	assert.True(t, delivered.Delivered())
	assert.Equal(t, at, delivered.SentAt())
	assert.Empty(t, delivered.Reason())

	failed := FailedWith("smtp refused")
	assert.False(t, failed.Delivered())
	assert.True(t, failed.SentAt().IsZero())
	assert.Equal(t, "smtp refused", failed.Reason())
}
