package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/password"
	"smartpark/backend/services/booking-service/internal/repository"
	"smartpark/backend/services/booking-service/internal/token"
)

func newAuth(t *testing.T) (*AuthService, *token.Service, *repository.MemoryStore) {
	t.Helper()
	clk := clock.NewManual(t0)
	store := repository.NewMemoryStore()
	tokens := token.NewService("test-secret", time.Hour, clk)
	return NewAuthService(store, password.NewBcryptHasher(bcrypt.MinCost), tokens, clk, nil), tokens, store
}

func TestRegisterThenLogin(t *testing.T) {
	auth, tokens, store := newAuth(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, " Alice ", "Alice@Example.com", "555-0100", "pass1")
	require.NoError(t, err)
	require.Nil(t, reg.Failure)
	assert.Equal(t, "Alice", reg.User.Name)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.NotEqual(t, "pass1", reg.User.PasswordHash)
	assert.Equal(t, t0, reg.User.CreatedAt)

	claims, err := tokens.Validate(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	stored, err := store.FindUserByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	login, err := auth.Login(ctx, "ALICE@example.com", "pass1")
	require.NoError(t, err)
	require.Nil(t, login.Failure)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterRefusals(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Alice", "alice@example.com", "", "pass1")
	require.NoError(t, err)

	dup, err := auth.Register(ctx, "Other", " alice@EXAMPLE.com", "", "pass2")
	require.NoError(t, err)
	require.NotNil(t, dup.Failure)
	assert.Equal(t, CodeEmailInUse, dup.Failure.Code)
	assert.Equal(t, KindConflict, dup.Failure.Kind)

	for _, in := range [][3]string{{"", "a@b.c", "x"}, {"A", " ", "x"}, {"A", "a@b.c", ""}} {
		res, err := auth.Register(ctx, in[0], in[1], "", in[2])
		require.NoError(t, err)
		require.NotNil(t, res.Failure)
		assert.Equal(t, CodeMissingField, res.Failure.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Alice", "alice@example.com", "", "pass1")
	require.NoError(t, err)

	for _, in := range [][2]string{{"alice@example.com", "wrong"}, {"nobody@example.com", "pass1"}, {"", ""}} {
		res, err := auth.Login(ctx, in[0], in[1])
		require.NoError(t, err)
		require.NotNil(t, res.Failure)
		assert.Equal(t, CodeInvalidCredentials, res.Failure.Code)
		assert.Empty(t, res.Token)
	}
}
