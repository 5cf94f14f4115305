package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hasher := NewBcryptHasher(4)

	hash, err := hasher.Hash("a-long-enough-password")
	require.NoError(t, err)
	assert.NotEqual(t, "a-long-enough-password", hash)

	assert.NoError(t, hasher.Compare(hash, "a-long-enough-password"))
	assert.Error(t, hasher.Compare(hash, "a-different-password"))
}

func TestHashRejectsShortPasswords(t *testing.T) {
	hasher := NewBcryptHasher(4)

	_, err := hasher.Hash("short")

	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestOutOfRangeCostFallsBack(t *testing.T) {
	hasher := NewBcryptHasher(-1)

	hash, err := hasher.Hash("a-long-enough-password")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(hash, "a-long-enough-password"))
}
