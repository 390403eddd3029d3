package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark/backend/services/booking-service/internal/clock"
)

func TestGenerateAndValidate(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService("secret", time.Hour, clk)

	raw, err := svc.Generate("U001", "driver@example.com")
	require.NoError(t, err)

	claims, err := svc.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "U001", claims.UserID)
	assert.Equal(t, "driver@example.com", claims.Email)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService("secret", time.Hour, clk)

	raw, err := svc.Generate("U001", "")
	require.NoError(t, err)

	other := NewService("other-secret", time.Hour, clk)
	_, err = other.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clk.Advance(2 * time.Hour)
	_, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRequiresUser(t *testing.T) {
	_, err := NewService("secret", 0, nil).Generate("", "")
	assert.Error(t, err)
}
