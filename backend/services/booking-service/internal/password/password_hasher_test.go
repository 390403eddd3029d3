package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("pass1")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1", hash)

	assert.NoError(t, h.Compare(hash, "pass1"))
	assert.ErrorIs(t, h.Compare(hash, "pass2"), bcrypt.ErrMismatchedHashAndPassword)

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
